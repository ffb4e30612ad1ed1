package store

import (
	"context"
	"errors"
	"time"

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrUserNotFound           = errors.New("user not found")
	ErrUserExists             = errors.New("member already exists")
	ErrReferralUserExists     = errors.New("referral user already exists")
	ErrReferralCodeTaken      = errors.New("referral code already taken")
	ErrReferralLimitReached   = errors.New("referrer reached the referral limit")
	ErrAuctionNotFound        = errors.New("auction not found")
	ErrBidConflict            = errors.New("auction changed while bidding")
)

// EntryParams describes one ledger posting. Points is always the positive
// magnitude; the direction comes from the method it is passed to.
type EntryParams struct {
	TransactionId string
	UserId        string
	RuleKey       rules.Key
	Points        int64
	Label         string
	Metadata      map[string]string
}

// NewReferralUserParams creates a referral record. When ReferredByUserId is
// set, the referrer's accepted counter is bumped in the same transaction,
// refusing once it reaches MaxReferrals.
type NewReferralUserParams struct {
	UserId            string
	ReferralCode      string
	DeviceFingerprint string
	ReferredByUserId  string
	ReferredByCode    string
	MaxReferrals      int
	AuditEventType    string
	AuditData         map[string]string
	AuditLimit        int
}

// FirstActionParams marks a member's first qualifying action.
type FirstActionParams struct {
	UserId      string
	ActionType  string
	CompletedAt time.Time
	AuditLimit  int
}

// FirstActionOutcome reports what CompleteFirstAction changed.
type FirstActionOutcome struct {
	AlreadyCompleted bool
	RewardApplied    bool
	ReferrerId       string
	ReferredTx       *models.Transaction
	ReferrerTx       *models.Transaction
}

// SaveStreakParams persists a streak transition together with its credits.
// ExpectedVersion is the version read before computing the transition.
type SaveStreakParams struct {
	Record          models.StreakRecord
	ExpectedVersion int64
	Credits         []EntryParams
}

// RecordBidParams appends a bid if the auction still shows ExpectedCurrentBid
// and ExpectedBidderId ("" before the first bid).
type RecordBidParams struct {
	ItemId             string
	BidderId           string
	Amount             int64
	ExpectedCurrentBid int64
	ExpectedBidderId   string
	PlacedAt           time.Time
}

// LedgerStore defines the points ledger contract.
type LedgerStore interface {
	// --- Users ---
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, userId, name, email string) (*models.User, error)

	// --- Balances ---
	GetBalance(ctx context.Context, userId string) (int64, error)
	GetAccountBalance(ctx context.Context, userId string) (*models.AccountBalance, error)
	GetAllBalances(ctx context.Context) ([]models.AccountBalance, error)
	ReconcileBalance(ctx context.Context, userId string) error

	// --- Transactions ---
	PostCredit(ctx context.Context, params EntryParams) (*models.Transaction, error)
	PostDebit(ctx context.Context, params EntryParams) (*models.Transaction, error)
	IsProcessed(ctx context.Context, transactionId string) (bool, error)
	GetTransactions(ctx context.Context, userId, rulePrefix string, limit int) ([]models.Transaction, error)
	ResetAccount(ctx context.Context, userId string) error

	// --- Lifecycle ---
	Ping(ctx context.Context) error
	Close()
}

// Referral audit event types
const (
	AuditReferralAccepted          = "REFERRAL_ACCEPTED"
	AuditReferralRejected          = "REFERRAL_REJECTED"
	AuditReferralRewardDistributed = "REFERRAL_REWARD_DISTRIBUTED"
)

// ReferralStore persists referral records and their audit trail.
type ReferralStore interface {
	CreateReferralUser(ctx context.Context, params NewReferralUserParams) (*models.ReferralUser, error)
	GetReferralUser(ctx context.Context, userId string) (*models.ReferralUser, error)
	GetReferralUserByCode(ctx context.Context, code string) (*models.ReferralUser, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	HasDeviceReferral(ctx context.Context, deviceFingerprint, referrerId string) (bool, error)
	ListReferredUsers(ctx context.Context, referrerId string) ([]models.ReferralUser, error)
	CompleteFirstAction(ctx context.Context, params FirstActionParams) (*FirstActionOutcome, error)
	AppendReferralAudit(ctx context.Context, eventType string, data map[string]string, keep int) error
	ListReferralAudit(ctx context.Context, limit int) ([]models.ReferralAuditEvent, error)
}

// StreakStore persists weekly streak state.
type StreakStore interface {
	GetStreak(ctx context.Context, userId string) (*models.StreakRecord, int64, error)
	SaveStreak(ctx context.Context, params SaveStreakParams) ([]models.Transaction, error)
	DeleteStreak(ctx context.Context, userId string) error
}

// AuctionStore persists auctions, bids and settlements.
type AuctionStore interface {
	CreateAuction(ctx context.Context, auction models.Auction) (bool, error)
	GetAuction(ctx context.Context, itemId string) (*models.Auction, error)
	ListAuctions(ctx context.Context, status models.AuctionStatus) ([]models.Auction, error)
	RecordBid(ctx context.Context, params RecordBidParams) (*models.Bid, error)
	ListExpiredAuctions(ctx context.Context, now time.Time) ([]models.Auction, error)
	SettleAuction(ctx context.Context, itemId string, now time.Time) (*models.SettlementResult, error)
	ListBidsByBidder(ctx context.Context, bidderId string) ([]models.Bid, error)
	ListWonAuctions(ctx context.Context, winnerId string) ([]models.Auction, error)
	GetAuctionStats(ctx context.Context) (*models.AuctionStats, error)
}

// PointsStore is everything the SQLite backend provides.
type PointsStore interface {
	LedgerStore
	ReferralStore
	StreakStore
	AuctionStore
}

// CommitObserver is told about ledger transactions after they commit.
// Delivery happens on a background worker in commit order with a bounded
// context; observers cannot veto the commit.
type CommitObserver interface {
	TransactionsCommitted(ctx context.Context, txs []models.Transaction)
}
