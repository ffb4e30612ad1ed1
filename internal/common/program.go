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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"eco-loop-rewards-go/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// LoadProgramConfig reads the program file over the built-in defaults.
// A missing file is not an error; the defaults are used as-is.
func LoadProgramConfig(programFile string) (models.ProgramConfig, error) {
	program := models.DefaultProgramConfig()

	programPath := programFile
	if !filepath.IsAbs(programFile) {
		wd, err := os.Getwd()
		if err != nil {
			return program, fmt.Errorf("failed to get working directory: %w", err)
		}
		programPath = filepath.Join(wd, programFile)
	}

	data, err := os.ReadFile(programPath)
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Info("No program file found, using defaults", zap.String("path", programPath))
		return program, nil
	}
	if err != nil {
		return program, fmt.Errorf("unable to read %s: %w", programFile, err)
	}

	if err := yaml.Unmarshal(data, &program); err != nil {
		return program, fmt.Errorf("unable to parse %s: %w", programFile, err)
	}

	if err := validateProgram(program); err != nil {
		return program, fmt.Errorf("invalid %s: %w", programFile, err)
	}
	return program, nil
}

func validateProgram(program models.ProgramConfig) error {
	if program.Referral.CodeLength <= 0 {
		return fmt.Errorf("referral.code_length must be positive")
	}
	if program.Streak.MilestoneWeeks <= 0 {
		return fmt.Errorf("streak.milestone_weeks must be positive")
	}
	if program.Auction.Duration <= 0 || program.Auction.MinIncrement <= 0 {
		return fmt.Errorf("auction.duration and auction.min_increment must be positive")
	}
	for i, hub := range program.Hubs {
		if hub.Id == "" || hub.Name == "" {
			return fmt.Errorf("hub at index %d missing id or name", i)
		}
	}
	for i, row := range program.Impact {
		if row.Category == "" || row.Outcome == "" || row.Month == "" {
			return fmt.Errorf("impact_seed at index %d missing category, outcome or month", i)
		}
	}
	return nil
}
