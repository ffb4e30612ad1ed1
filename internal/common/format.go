/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package common

import (
	"fmt"
	"strings"
)

// DefaultWidth is the width of report rules.
const DefaultWidth = 80

func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintHeader prints a report title between two rules.
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	PrintSeparator("=", width)
}

func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintMemberHeader opens the box drawn around one member's section.
func PrintMemberHeader(user UserInfo, balance int64, width int) {
	fmt.Printf("\n┌─ Member: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Balance: %s EcoPoints\n", FormatPoints(balance))
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the box-drawing prefix for a list row.
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// FormatPoints renders an amount with thousands separators.
func FormatPoints(points int64) string {
	sign := ""
	if points < 0 {
		sign = "-"
		points = -points
	}
	digits := fmt.Sprint(points)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + b.String()
}

// FormatDelta renders a signed ledger movement, e.g. "+10" or "-30".
func FormatDelta(delta int64) string {
	if delta > 0 {
		return "+" + FormatPoints(delta)
	}
	return FormatPoints(delta)
}

// ShortId trims long identifiers for table output.
func ShortId(id string) string {
	if id == "" {
		return "none"
	}
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}
