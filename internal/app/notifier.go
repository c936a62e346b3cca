/**
 * @description
 * Best-effort notification dispatch. Settlement outcomes are pushed to the
 * affected users through the out-of-process push endpoint and published as
 * AMQP events for other services. Delivery is at-most-once: every failure
 * here is logged and swallowed, and never affects the financial outcome of
 * an already-committed transfer or request transition.
 */

package app

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/instapay/settlement-service/internal/domain"
	"github.com/instapay/settlement-service/pkg/pushclient"
)

const settlementExchange = "instapay.events"

func (s *Service) notifyTransferSettled(ctx context.Context, record *domain.Transaction) {
	s.publishEvent(ctx, "transfer.settled", record)
	s.sendPush(ctx, record.SenderUserID, "transfer", "sent", record)
	s.sendPush(ctx, record.ReceiverUserID, "transfer", "received", record)
}

func (s *Service) notifyMoneyRequestCreated(ctx context.Context, request *domain.MoneyRequest) {
	s.publishEvent(ctx, "money_request.created", request)
	s.sendPush(ctx, &request.RequestedUserID, "money_request", "received", request)
}

func (s *Service) notifyMoneyRequestAccepted(ctx context.Context, request *domain.MoneyRequest, record *domain.Transaction) {
	s.publishEvent(ctx, "money_request.accepted", request)
	s.sendPush(ctx, &request.RequesterUserID, "money_request", "accepted", domain.AcceptMoneyRequestResult{
		Request:     request,
		Transaction: record,
	})
}

func (s *Service) notifyMoneyRequestDeclined(ctx context.Context, request *domain.MoneyRequest) {
	s.publishEvent(ctx, "money_request.declined", request)
	s.sendPush(ctx, &request.RequesterUserID, "money_request", "declined", request)
}

func (s *Service) publishEvent(ctx context.Context, routingKey string, body interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, settlementExchange, routingKey, body); err != nil {
		log.Printf("level=warn component=notifier msg=\"event publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}

func (s *Service) sendPush(ctx context.Context, userID *uuid.UUID, pushType, action string, data interface{}) {
	if s.push == nil || userID == nil {
		return
	}
	err := s.push.Send(ctx, pushclient.Push{
		To:     userID.String(),
		Type:   pushType,
		Action: action,
		Data:   data,
	})
	if err != nil {
		log.Printf("level=warn component=notifier msg=\"push delivery failed\" user_id=%s type=%s action=%s err=%v", userID, pushType, action, err)
	}
}
