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

package database

const (
	// User queries
	queryGetActiveUsers = `
		SELECT id, name, email, created_at, updated_at
		FROM users
		WHERE active = 1
		ORDER BY created_at`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, name, email) VALUES (?, ?, ?)`

	queryGetUserById = `
		SELECT id, name, email, created_at, updated_at
		FROM users
		WHERE id = ? AND active = 1`

	queryGetUserByEmail = `
		SELECT id, name, email, created_at, updated_at
		FROM users
		WHERE email = ? AND active = 1`

	// Balance queries
	queryGetBalance = `
		SELECT balance
		FROM account_balances
		WHERE user_id = ?`

	queryGetAccountBalanceRow = `
		SELECT id, user_id, balance, COALESCE(last_transaction_id, ''), version, updated_at
		FROM account_balances
		WHERE user_id = ?`

	queryGetAllBalances = `
		SELECT id, user_id, balance, COALESCE(last_transaction_id, ''), version, updated_at
		FROM account_balances
		ORDER BY balance DESC, user_id`

	queryReconcileBalance = `
		SELECT COALESCE(SUM(points_delta), 0) as calculated_balance
		FROM transactions
		WHERE user_id = ?`

	// Subledger transaction queries
	queryGetAccountBalance = `
		SELECT id, balance, version
		FROM account_balances
		WHERE user_id = ?`

	queryInsertAccountBalance = `
		INSERT INTO account_balances (id, user_id, balance, version, updated_at)
		VALUES (?, ?, 0, 1, ?)`

	queryUpdateAccountBalance = `
		UPDATE account_balances
		SET balance = ?, last_transaction_id = ?, version = version + 1, updated_at = ?
		WHERE user_id = ? AND version = ?`

	queryCheckProcessedTransaction = `
		SELECT transaction_id FROM processed_transactions WHERE transaction_id = ? LIMIT 1`

	queryMarkProcessedTransaction = `
		INSERT INTO processed_transactions (transaction_id, user_id, processed_at)
		VALUES (?, ?, ?)`

	queryInsertTransaction = `
		INSERT INTO transactions (id, user_id, rule_key, points_delta, label, balance_before, balance_after, metadata, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING seq`

	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, transaction_id, account_type, account_id, debit_points, credit_points)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetTransactions = `
		SELECT seq, id, user_id, rule_key, points_delta, label, balance_before, balance_after, metadata, source, created_at
		FROM transactions
		WHERE user_id = ? AND rule_key LIKE ? ESCAPE '\'
		ORDER BY seq ASC`

	queryGetTransactionById = `
		SELECT seq, id, user_id, rule_key, points_delta, label, balance_before, balance_after, metadata, source, created_at
		FROM transactions
		WHERE id = ?`

	// Reset queries
	queryDeleteJournalForUser = `
		DELETE FROM journal_entries
		WHERE transaction_id IN (SELECT id FROM transactions WHERE user_id = ?)`

	queryDeleteTransactionsForUser = `
		DELETE FROM transactions WHERE user_id = ?`

	queryDeleteProcessedForUser = `
		DELETE FROM processed_transactions WHERE user_id = ?`

	queryDeleteBalanceForUser = `
		DELETE FROM account_balances WHERE user_id = ?`

	// Referral queries
	queryInsertReferralUser = `
		INSERT INTO referral_users (user_id, referral_code, referred_by_user_id, referred_by_code, device_fingerprint, created_at)
		VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?)`

	referralUserColumns = `
		user_id, referral_code, COALESCE(referred_by_user_id, ''), COALESCE(referred_by_code, ''),
		referral_reward_given, first_action_completed_at, device_fingerprint,
		total_referrals_accepted, total_referrals_rewarded, total_points_earned, created_at`

	queryGetReferralUser = `
		SELECT ` + referralUserColumns + `
		FROM referral_users
		WHERE user_id = ?`

	queryGetReferralUserByCode = `
		SELECT ` + referralUserColumns + `
		FROM referral_users
		WHERE referral_code = ?`

	queryListReferredUsers = `
		SELECT ` + referralUserColumns + `
		FROM referral_users
		WHERE referred_by_user_id = ?
		ORDER BY created_at`

	queryReferralCodeExists = `
		SELECT 1 FROM referral_users WHERE referral_code = ? LIMIT 1`

	queryHasDeviceReferral = `
		SELECT 1 FROM referral_users
		WHERE device_fingerprint = ? AND referred_by_user_id = ? AND user_id != ?
		LIMIT 1`

	queryAcceptReferral = `
		UPDATE referral_users
		SET total_referrals_accepted = total_referrals_accepted + 1
		WHERE user_id = ? AND total_referrals_accepted < ?`

	queryMarkFirstAction = `
		UPDATE referral_users
		SET first_action_completed_at = ?
		WHERE user_id = ? AND first_action_completed_at IS NULL`

	queryGetReferralLink = `
		SELECT COALESCE(referred_by_user_id, ''), referral_reward_given
		FROM referral_users
		WHERE user_id = ?`

	queryMarkReferralRewardGiven = `
		UPDATE referral_users
		SET referral_reward_given = 1
		WHERE user_id = ? AND referral_reward_given = 0`

	queryCreditReferrerStats = `
		UPDATE referral_users
		SET total_referrals_rewarded = total_referrals_rewarded + 1,
		    total_points_earned = total_points_earned + ?
		WHERE user_id = ?`

	queryInsertReferralAudit = `
		INSERT INTO referral_audit (id, event_type, data, created_at)
		VALUES (?, ?, ?, ?)`

	queryPruneReferralAudit = `
		DELETE FROM referral_audit
		WHERE seq NOT IN (SELECT seq FROM referral_audit ORDER BY seq DESC LIMIT ?)`

	queryListReferralAudit = `
		SELECT id, event_type, data, created_at
		FROM referral_audit
		ORDER BY seq DESC
		LIMIT ?`

	// Streak queries
	queryGetStreak = `
		SELECT user_id, last_action_date, current_count, last_week_key, milestone_reached, longest_count, version, updated_at
		FROM streaks
		WHERE user_id = ?`

	queryInsertStreak = `
		INSERT INTO streaks (user_id, last_action_date, current_count, last_week_key, milestone_reached, longest_count, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)`

	queryUpdateStreak = `
		UPDATE streaks
		SET last_action_date = ?, current_count = ?, last_week_key = ?, milestone_reached = ?,
		    longest_count = ?, version = version + 1, updated_at = ?
		WHERE user_id = ? AND version = ?`

	queryDeleteStreak = `
		DELETE FROM streaks WHERE user_id = ?`

	// Auction queries
	queryInsertAuction = `
		INSERT OR IGNORE INTO auctions (item_id, item_name, hub_id, start_date, end_date, starting_bid, current_bid, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'active')`

	auctionColumns = `
		item_id, item_name, hub_id, start_date, end_date, starting_bid, current_bid,
		COALESCE(highest_bidder_id, ''), status, COALESCE(winner_id, ''), final_bid,
		settled_at, settlement_note`

	queryGetAuction = `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE item_id = ?`

	queryListAuctions = `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE (? = '' OR status = ?)
		ORDER BY end_date ASC, item_id`

	queryListExpiredAuctions = `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE status = 'active' AND end_date <= ?
		ORDER BY end_date ASC`

	queryListWonAuctions = `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE winner_id = ? AND status = 'winner_determined'
		ORDER BY settled_at DESC`

	queryUpdateAuctionBid = `
		UPDATE auctions
		SET current_bid = ?, highest_bidder_id = ?
		WHERE item_id = ? AND status = 'active' AND end_date > ? AND current_bid = ?
		  AND COALESCE(highest_bidder_id, '') = ?`

	queryInsertBid = `
		INSERT INTO bids (id, item_id, bidder_id, amount, placed_at)
		VALUES (?, ?, ?, ?, ?)`

	queryListBidsForItem = `
		SELECT id, item_id, bidder_id, amount, placed_at
		FROM bids
		WHERE item_id = ?
		ORDER BY seq ASC`

	queryListBidsByBidder = `
		SELECT id, item_id, bidder_id, amount, placed_at
		FROM bids
		WHERE bidder_id = ?
		ORDER BY seq DESC`

	querySettleAuction = `
		UPDATE auctions
		SET status = ?, winner_id = NULLIF(?, ''), final_bid = ?, settled_at = ?, settlement_note = ?
		WHERE item_id = ? AND status = 'active'`

	queryAuctionStats = `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status != 'active' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'winner_determined' THEN final_bid ELSE 0 END), 0)
		FROM auctions`

	queryCountBids = `
		SELECT COUNT(*) FROM bids`
)
