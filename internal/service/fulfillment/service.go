package fulfillment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/printshop/internal/metrics"
)

// Service управляет жизненным циклом заказа: размещение со списанием склада,
// завершение и отмена с возвратом остатков. Каждый переход оставляет след в
// журнале аудита и событие в transactional outbox.
type Service struct {
	orders        domain.OrderRepository
	inventory     domain.InventoryRepository
	catalog       domain.CatalogLookup
	outbox        domain.OutboxRepository
	audit         domain.AuditLog
	logger        *log.Entry
	metrics       *metrics.FulfillmentMetrics
	kafkaProducer *kafka.Producer // опциональный Kafka producer для event-driven архитектуры
}

// NewService создаёт рабочий экземпляр сервиса.
func NewService(
	orders domain.OrderRepository,
	inventory domain.InventoryRepository,
	catalog domain.CatalogLookup,
	outbox domain.OutboxRepository,
	audit domain.AuditLog,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "fulfillment")
	}
	return &Service{
		orders:    orders,
		inventory: inventory,
		catalog:   catalog,
		outbox:    outbox,
		audit:     audit,
		logger:    logger,
		metrics:   metrics.NewFulfillmentMetrics(),
	}
}

// NewServiceWithKafka создаёт сервис с Kafka producer для event-driven архитектуры.
func NewServiceWithKafka(
	orders domain.OrderRepository,
	inventory domain.InventoryRepository,
	catalog domain.CatalogLookup,
	outbox domain.OutboxRepository,
	audit domain.AuditLog,
	kafkaProducer *kafka.Producer,
	logger *log.Entry,
) *Service {
	svc := NewService(orders, inventory, catalog, outbox, audit, logger)
	svc.kafkaProducer = kafkaProducer
	return svc
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(
	orders domain.OrderRepository,
	inventory domain.InventoryRepository,
	catalog domain.CatalogLookup,
	outbox domain.OutboxRepository,
	audit domain.AuditLog,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "fulfillment")
	}
	return &Service{
		orders:    orders,
		inventory: inventory,
		catalog:   catalog,
		outbox:    outbox,
		audit:     audit,
		logger:    logger,
	}
}

// PlaceOrder валидирует и размещает заказ. Склад по позициям с привязанной
// складской позицией списывается в той же единице работы, что и вставка
// заказа: нехватка остатка отменяет размещение целиком. Возвращается заказ
// с назначенным идентификатором, итогами и номером.
func (s *Service) PlaceOrder(order domain.Order, items []domain.LineItem) (domain.Order, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordPlaceDuration(time.Since(start))
		}
	}()

	order.ApplyDefaults()

	if errs := domain.ValidateNewOrder(order, items); len(errs) > 0 {
		if s.metrics != nil {
			s.metrics.RecordOrderRejected()
		}
		return domain.Order{}, fmt.Errorf("validate order: %w", errors.Join(errs...))
	}

	orderID, err := s.orders.Create(order, items)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordOrderRejected()
		}
		s.logger.WithError(err).Warn("order placement failed")
		return domain.Order{}, err
	}

	created, err := s.orders.GetByID(orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("load created order %d: %w", orderID, err)
	}

	if err := s.audit.Append(actorFor(order.UserID), domain.AuditActionOrderPlaced,
		fmt.Sprintf("Order #%d placed (%s), total %s", created.ID, created.Reference, created.TotalAmount)); err != nil {
		s.logger.WithError(err).WithField("order_id", created.ID).Warn("failed to audit order placement")
	}

	deducted := s.publishStockEventsForItems(created.Items, kafka.EventTypeStockDeducted)

	if s.metrics != nil {
		s.metrics.RecordOrderPlaced()
		for i := 0; i < deducted; i++ {
			s.metrics.RecordStockDeduction()
		}
	}

	s.publishOrderEvent(kafka.EventTypeOrderCreated, created)

	s.logger.WithFields(log.Fields{
		"order_id":  created.ID,
		"reference": created.Reference,
		"total":     created.TotalAmount.String(),
	}).Info("order placed")

	return created, nil
}

// CompleteOrder переводит заказ из Pending в Completed, фиксируя исполнителя
// и дату завершения. Склад не затрагивается: списание уже произошло при
// размещении.
func (s *Service) CompleteOrder(orderID int64, completedBy *int64) error {
	order, err := s.orders.GetByID(orderID)
	if err != nil {
		return err
	}
	if !order.Status.CanTransitionTo(domain.OrderStatusCompleted) {
		return fmt.Errorf("order %d is %s: %w", orderID, order.Status, domain.ErrInvalidTransition)
	}

	if err := s.orders.Complete(orderID, completedBy); err != nil {
		return err
	}

	if err := s.audit.Append(completedBy, domain.AuditActionStatusChange,
		fmt.Sprintf("Order #%d status changed to '%s'", orderID, domain.OrderStatusCompleted)); err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("failed to audit completion")
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCompleted()
	}

	order.Status = domain.OrderStatusCompleted
	s.publishOrderEvent(kafka.EventTypeOrderCompleted, order)

	s.logger.WithField("order_id", orderID).Info("order completed")

	return nil
}

// CancelOrder переводит заказ из Pending в Cancelled. Сначала атомарно
// возвращаются остатки по всем позициям заказа, затем меняется статус;
// оба шага пишут записи аудита.
func (s *Service) CancelOrder(orderID int64, actor *int64) error {
	order, err := s.orders.GetByID(orderID)
	if err != nil {
		return err
	}
	if !order.Status.CanTransitionTo(domain.OrderStatusCancelled) {
		return fmt.Errorf("order %d is %s: %w", orderID, order.Status, domain.ErrInvalidTransition)
	}

	if err := s.orders.RevertInventoryForOrder(orderID, actor); err != nil {
		return fmt.Errorf("revert inventory for order %d: %w", orderID, err)
	}

	restored := s.publishStockEventsForItems(order.Items, kafka.EventTypeStockRestored)
	if s.metrics != nil {
		for i := 0; i < restored; i++ {
			s.metrics.RecordStockRestoration()
		}
	}

	if err := s.orders.UpdateStatus(orderID, domain.OrderStatusCancelled, actor); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCancelled()
	}

	order.Status = domain.OrderStatusCancelled
	s.publishOrderEvent(kafka.EventTypeOrderCancelled, order)

	s.logger.WithField("order_id", orderID).Info("order cancelled, stock restored")

	return nil
}

// ChangeStatus выполняет переход жизненного цикла по имени статуса. Отмена
// всегда идёт путём CancelOrder, чтобы возврат склада нельзя было обойти.
func (s *Service) ChangeStatus(orderID int64, status domain.OrderStatus, actor *int64) error {
	switch status {
	case domain.OrderStatusCompleted:
		return s.CompleteOrder(orderID, actor)
	case domain.OrderStatusCancelled:
		return s.CancelOrder(orderID, actor)
	default:
		return fmt.Errorf("target status %s: %w", status, domain.ErrInvalidTransition)
	}
}

// publishOrderEvent кладёт событие в outbox и, при наличии producer,
// дублирует его в Kafka. Ошибки публикации не откатывают бизнес-операцию.
func (s *Service) publishOrderEvent(eventType kafka.EventType, order domain.Order) {
	event := kafka.NewOrderEvent(eventType, order.ID, order.Reference,
		string(order.Status), order.TotalAmount, nil)

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to marshal order event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   strconv.FormatInt(order.ID, 10),
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to enqueue outbox event")
	} else if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}

	if s.kafkaProducer != nil {
		if err := s.kafkaProducer.PublishEvent(kafka.TopicOrderEvents,
			strconv.FormatInt(order.ID, 10), event); err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to publish order event to kafka")
		}
	}
}

// publishStockEventsForItems публикует складские события по позициям заказа.
// Позиции без привязки к складу пропускаются; возвращается число позиций,
// реально затронувших остаток. Если после списания позиция опустилась ниже
// порога дозаказа, дополнительно публикуется stock.low (однократно на
// складскую позицию). Ошибки разрешения не откатывают бизнес-операцию.
func (s *Service) publishStockEventsForItems(items []domain.LineItem, eventType kafka.EventType) int {
	touched := 0
	lowReported := make(map[int64]bool)
	for _, item := range items {
		product, err := s.catalog.GetProductByID(item.ProductID)
		if err != nil {
			s.logger.WithError(err).WithField("product_id", item.ProductID).Warn("failed to resolve product for stock event")
			continue
		}
		if product.InventoryID == nil {
			continue
		}
		stock, err := s.inventory.GetByID(*product.InventoryID)
		if err != nil {
			s.logger.WithError(err).WithField("inventory_id", *product.InventoryID).Warn("failed to load stock item for stock event")
			continue
		}

		touched++
		s.publishStockEvent(eventType, stock)

		if eventType == kafka.EventTypeStockDeducted &&
			stock.Status != domain.StockStatusAvailable && !lowReported[stock.ID] {
			lowReported[stock.ID] = true
			s.publishStockEvent(kafka.EventTypeStockLow, stock)
		}
	}
	return touched
}

// publishStockEvent кладёт складское событие в outbox и, при наличии
// producer, дублирует его в Kafka.
func (s *Service) publishStockEvent(eventType kafka.EventType, stock domain.StockItem) {
	event := kafka.NewStockEvent(eventType, stock.ID, stock.Quantity, string(stock.Status))

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithField("inventory_id", stock.ID).Error("failed to marshal stock event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "stock",
		AggregateID:   strconv.FormatInt(stock.ID, 10),
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("inventory_id", stock.ID).Error("failed to enqueue outbox event")
	} else if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}

	if s.kafkaProducer != nil {
		if err := s.kafkaProducer.PublishEvent(kafka.TopicStockEvents,
			strconv.FormatInt(stock.ID, 10), event); err != nil {
			s.logger.WithError(err).WithField("inventory_id", stock.ID).Warn("failed to publish stock event to kafka")
		}
	}
}

func actorFor(userID int64) *int64 {
	if userID <= 0 {
		return nil
	}
	return &userID
}
