package enums

import "fmt"

// AuditAction names the state-changing operation an audit entry records.
type AuditAction string

const (
	AuditActionWalletCredited       AuditAction = "WALLET_CREDITED"
	AuditActionWalletDebited        AuditAction = "WALLET_DEBITED"
	AuditActionWalletReserved       AuditAction = "WALLET_RESERVED"
	AuditActionWalletReleased       AuditAction = "WALLET_RELEASED"
	AuditActionWalletPendingCleared AuditAction = "WALLET_PENDING_CLEARED"
	AuditActionSettlementCreated    AuditAction = "SETTLEMENT_CREATED"
	AuditActionSettlementProcessing AuditAction = "SETTLEMENT_PROCESSING"
	AuditActionSettlementCompleted  AuditAction = "SETTLEMENT_COMPLETED"
	AuditActionSettlementFailed     AuditAction = "SETTLEMENT_FAILED"
	AuditActionSettlementCancelled  AuditAction = "SETTLEMENT_CANCELLED"
	AuditActionWebhookProcessed     AuditAction = "WEBHOOK_PROCESSED"
)

var validAuditActions = []AuditAction{
	AuditActionWalletCredited,
	AuditActionWalletDebited,
	AuditActionWalletReserved,
	AuditActionWalletReleased,
	AuditActionWalletPendingCleared,
	AuditActionSettlementCreated,
	AuditActionSettlementProcessing,
	AuditActionSettlementCompleted,
	AuditActionSettlementFailed,
	AuditActionSettlementCancelled,
	AuditActionWebhookProcessed,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
