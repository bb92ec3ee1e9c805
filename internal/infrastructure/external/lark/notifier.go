package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/application/port"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/entity"
)

// Notifier delivers workflow notifications over Lark direct messages.
// Users without a Lark ID are skipped silently.
type Notifier struct {
	client *Client
	logger *zap.Logger
}

// NewNotifier creates a new Lark notifier
func NewNotifier(client *Client, logger *zap.Logger) port.Notifier {
	return &Notifier{
		client: client,
		logger: logger,
	}
}

// NotifyStepPending tells an approver a step awaits their decision
func (n *Notifier) NotifyStepPending(ctx context.Context, approver *entity.User, expense *entity.Expense, step *entity.ApprovalStep) error {
	if approver.LarkID == "" {
		n.logger.Debug("Approver has no Lark ID, skipping notification",
			zap.Int64("approver_id", approver.ID))
		return nil
	}

	text := fmt.Sprintf("Expense %s (%s %.2f) is waiting for your approval.",
		expense.PublicID, expense.Currency, float64(expense.AmountCents)/100)
	return n.sendText(ctx, approver.LarkID, text)
}

// NotifyExpenseFinalized tells the submitter their expense reached a
// terminal status
func (n *Notifier) NotifyExpenseFinalized(ctx context.Context, submitter *entity.User, expense *entity.Expense) error {
	if submitter.LarkID == "" {
		n.logger.Debug("Submitter has no Lark ID, skipping notification",
			zap.Int64("submitter_id", submitter.ID))
		return nil
	}

	text := fmt.Sprintf("Your expense %s is now %s.", expense.PublicID, expense.Status)
	if expense.StatusReason != "" {
		text = fmt.Sprintf("%s Reason: %s", text, expense.StatusReason)
	}
	return n.sendText(ctx, submitter.LarkID, text)
}

// sendText sends a plain text direct message to an open_id
func (n *Notifier) sendText(ctx context.Context, openID, text string) error {
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal message content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("open_id").
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(openID).
			MsgType("text").
			Content(string(content)).
			Build()).
		Build()

	resp, err := n.client.sdk.Im.Message.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send Lark message",
			zap.String("receive_id", openID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		n.logger.Error("Lark API returned failure",
			zap.String("receive_id", openID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("lark API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	return nil
}

// Verify interface compliance
var _ port.Notifier = (*Notifier)(nil)
