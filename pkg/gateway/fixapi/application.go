package fixapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	fix42nos "github.com/quickfixgo/fix42/newordersingle"
	fix44nos "github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
	"go.uber.org/zap"

	"github.com/joripage/ergodic/pkg/clock"
	"github.com/joripage/ergodic/pkg/engine"
	"github.com/joripage/ergodic/pkg/orderbook"
)

const submitTimeout = 2 * time.Second

// Submitter is the producer side of the match engine.
type Submitter interface {
	Submit(ctx context.Context, order orderbook.Order) error
}

// sendFunc delivers an outbound message on a session.
type sendFunc func(m quickfix.Messagable, sessionID quickfix.SessionID) error

// Application implements the quickfix.Application interface
type Application struct {
	*quickfix.MessageRouter
	engine    Submitter
	converter Converter
	clock     clock.Clock
	send      sendFunc
	logger    *zap.Logger
}

func newApplication(e Submitter, conv Converter, logger *zap.Logger) *Application {
	app := &Application{
		MessageRouter: quickfix.NewMessageRouter(),
		engine:        e,
		converter:     conv,
		clock:         clock.Real{},
		send:          quickfix.SendToTarget,
		logger:        logger,
	}

	app.AddRoute(fix44nos.Route(app.onNewOrderSingle44))
	app.AddRoute(fix42nos.Route(app.onNewOrderSingle42))

	return app
}

// OnCreate implemented as part of Application interface
func (a *Application) OnCreate(sessionID quickfix.SessionID) {}

// OnLogon implemented as part of Application interface
func (a *Application) OnLogon(sessionID quickfix.SessionID) {
	a.logger.Info("fix logon", zap.String("session", sessionID.String()))
}

// OnLogout implemented as part of Application interface
func (a *Application) OnLogout(sessionID quickfix.SessionID) {
	a.logger.Info("fix logout", zap.String("session", sessionID.String()))
}

// ToAdmin implemented as part of Application interface
func (a *Application) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}

// ToApp implemented as part of Application interface
func (a *Application) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}

// FromAdmin implemented as part of Application interface
func (a *Application) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

// FromApp implemented as part of Application interface, uses Router on incoming application messages.
// The engine queue already serializes orders, so messages are routed inline.
func (a *Application) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	if rej := a.Route(msg, sessionID); rej != nil {
		clOrdID, _ := msg.Body.GetString(tag.ClOrdID)
		msgType, _ := msg.Header.GetString(tag.MsgType)
		a.logger.Info("fix message rejected",
			zap.String("session", sessionID.String()),
			zap.String("msg_type", msgType),
			zap.String("cl_ord_id", clOrdID),
			zap.Error(rej),
		)
		return rej
	}
	return nil
}

func (a *Application) onNewOrderSingle44(msg fix44nos.NewOrderSingle, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	clOrdID, err := msg.GetClOrdID()
	if err != nil {
		return err
	}
	side, err := msg.GetSide()
	if err != nil {
		return err
	}
	price, err := msg.GetPrice()
	if err != nil {
		return err
	}
	orderQty, err := msg.GetOrderQty()
	if err != nil {
		return err
	}
	symbol, _ := msg.GetSymbol()

	m := newOrderSingle{ClOrdID: clOrdID, Side: side, Price: price, OrderQty: orderQty}
	a.handleNewOrder(m, func(r report) quickfix.Messagable { return r.fix44(symbol) }, sessionID)
	return nil
}

func (a *Application) onNewOrderSingle42(msg fix42nos.NewOrderSingle, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	clOrdID, err := msg.GetClOrdID()
	if err != nil {
		return err
	}
	side, err := msg.GetSide()
	if err != nil {
		return err
	}
	price, err := msg.GetPrice()
	if err != nil {
		return err
	}
	orderQty, err := msg.GetOrderQty()
	if err != nil {
		return err
	}
	symbol, _ := msg.GetSymbol()

	m := newOrderSingle{ClOrdID: clOrdID, Side: side, Price: price, OrderQty: orderQty}
	a.handleNewOrder(m, func(r report) quickfix.Messagable { return r.fix42(symbol) }, sessionID)
	return nil
}

// handleNewOrder submits the order and answers with an ExecutionReport, NEW
// when queued and REJECTED otherwise.
func (a *Application) handleNewOrder(m newOrderSingle, build func(report) quickfix.Messagable, sessionID quickfix.SessionID) {
	r := report{clOrdID: m.ClOrdID, side: m.Side, qty: m.OrderQty, price: m.Price, scale: a.converter.Scale()}

	if err := a.submit(m); err != nil {
		a.logger.Info("fix order rejected",
			zap.String("session", sessionID.String()),
			zap.String("cl_ord_id", m.ClOrdID),
			zap.Error(err),
		)
		r.rejected, r.text = true, err.Error()
	}

	if err := a.send(build(r), sessionID); err != nil {
		a.logger.Warn("send execution report failed",
			zap.String("session", sessionID.String()),
			zap.String("cl_ord_id", m.ClOrdID),
			zap.Error(err),
		)
	}
}

func (a *Application) submit(m newOrderSingle) error {
	ts, err := clock.NowNanos(a.clock)
	if err != nil {
		return err
	}
	order, err := a.converter.toOrder(m, ts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if err := a.engine.Submit(ctx, order); err != nil {
		if errors.Is(err, engine.ErrQueueFull) || errors.Is(err, engine.ErrClosed) {
			return fmt.Errorf("engine unavailable: %w", err)
		}
		return err
	}
	return nil
}
