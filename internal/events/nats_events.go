// Package events publishes committed engine activity to NATS so downstream
// consumers (risk, accounting, dashboards) can follow the operation log
// without polling the API.
package events

import (
	"fmt"

	"issuance-backend/internal/clients"
	"issuance-backend/internal/engine"

	"github.com/sirupsen/logrus"
)

// Subjects. Operation events carry the kind as the last token so consumers
// can subscribe to a single operation type.
const (
	SubjectOperationPrefix = "issuance.operations." // + kind
	SubjectReserveState    = "issuance.reserve.state"
	SubjectCreditGrants    = "issuance.credit.grants"
)

// OperationEvent mirrors one committed engine operation.
type OperationEvent struct {
	ID     string            `json:"id"`
	Seq    uint64            `json:"seq"`
	Kind   string            `json:"kind"`
	Caller string            `json:"caller"`
	Detail map[string]string `json:"detail,omitempty"`
	Height uint64            `json:"height"`
	At     string            `json:"at"`
}

// ReserveStateEvent is a point-in-time reserve view.
type ReserveStateEvent struct {
	TotalIssued string `json:"total_issued"`
	LegABalance string `json:"leg_a_balance"`
	LegBBalance string `json:"leg_b_balance"`
	AccruedFees string `json:"accrued_fees"`
	Height      uint64 `json:"height"`
}

// GrantEvent mirrors one credit grant change.
type GrantEvent struct {
	Agent            string `json:"agent"`
	MaxCredit        string `json:"max_credit"`
	MintedNet        string `json:"minted_net"`
	EffectiveHeight  uint64 `json:"effective_height"`
	ExpirationHeight uint64 `json:"expiration_height"`
	Minable          bool   `json:"minable"`
	Burnable         bool   `json:"burnable"`
}

// Publisher pushes engine events to NATS. A nil Publisher is a valid no-op,
// so the engine works unchanged when NATS is not configured.
type Publisher struct {
	client *clients.NATSClient
}

func NewPublisher(client *clients.NATSClient) *Publisher {
	return &Publisher{client: client}
}

// PublishOperation publishes one committed operation.
func (p *Publisher) PublishOperation(op engine.Operation) {
	if p == nil || p.client == nil {
		return
	}
	subject := SubjectOperationPrefix + op.Kind
	event := OperationEvent{
		ID:     op.ID,
		Seq:    op.Seq,
		Kind:   op.Kind,
		Caller: op.Caller,
		Detail: op.Detail,
		Height: op.Height,
		At:     op.At.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if err := p.client.Publish(subject, event); err != nil {
		logrus.WithError(err).WithField("subject", subject).Warn("failed to publish operation event")
	}
}

// PublishReserveState publishes a reserve snapshot.
func (p *Publisher) PublishReserveState(event ReserveStateEvent) {
	if p == nil || p.client == nil {
		return
	}
	if err := p.client.Publish(SubjectReserveState, event); err != nil {
		logrus.WithError(err).Warn("failed to publish reserve state event")
	}
}

// PublishGrant publishes one credit grant change.
func (p *Publisher) PublishGrant(event GrantEvent) {
	if p == nil || p.client == nil {
		return
	}
	if err := p.client.Publish(SubjectCreditGrants, event); err != nil {
		logrus.WithError(err).Warn("failed to publish grant event")
	}
}

// OperationSubject returns the subject for one operation kind, for
// consumers that build their own subscriptions.
func OperationSubject(kind string) string {
	return fmt.Sprintf("%s%s", SubjectOperationPrefix, kind)
}
