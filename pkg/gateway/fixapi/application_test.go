package fixapi

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	fix42er "github.com/quickfixgo/fix42/executionreport"
	fix42nos "github.com/quickfixgo/fix42/newordersingle"
	fix44er "github.com/quickfixgo/fix44/executionreport"
	fix44nos "github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joripage/ergodic/pkg/clock"
	"github.com/joripage/ergodic/pkg/engine"
	"github.com/joripage/ergodic/pkg/orderbook"
)

type recordingEngine struct {
	mu     sync.Mutex
	orders []orderbook.Order
	err    error
}

func (r *recordingEngine) Submit(_ context.Context, o orderbook.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.orders = append(r.orders, o)
	return nil
}

type outbox struct {
	sent []quickfix.Messagable
}

func (o *outbox) send(m quickfix.Messagable, _ quickfix.SessionID) error {
	o.sent = append(o.sent, m)
	return nil
}

var testSession = quickfix.SessionID{BeginString: quickfix.BeginStringFIX44, SenderCompID: "MATCHD", TargetCompID: "CLIENT"}

func newTestApp(t *testing.T, e Submitter) (*Application, *outbox) {
	t.Helper()
	conv, err := NewConverter("0.01")
	require.NoError(t, err)

	app := newApplication(e, conv, zap.NewNop())
	app.clock = clock.Func(func() time.Time { return time.Unix(0, 1_000) })
	out := &outbox{}
	app.send = out.send
	return app, out
}

func newOrder44(clOrdID string, side enum.Side, price string, qty int64) fix44nos.NewOrderSingle {
	msg := fix44nos.New(
		field.NewClOrdID(clOrdID),
		field.NewSide(side),
		field.NewTransactTime(time.Now()),
		field.NewOrdType(enum.OrdType_LIMIT),
	)
	msg.SetSymbol("ERG")
	px := decimal.RequireFromString(price)
	msg.SetPrice(px, -px.Exponent())
	msg.SetOrderQty(decimal.NewFromInt(qty), 0)
	return msg
}

func TestNewOrderSingle44Accepted(t *testing.T) {
	e := &recordingEngine{}
	app, out := newTestApp(t, e)

	rej := app.onNewOrderSingle44(newOrder44("42", enum.Side_BUY, "100.05", 10), testSession)
	require.Nil(t, rej)

	require.Len(t, e.orders, 1)
	assert.Equal(t, orderbook.Order{ID: 42, Side: orderbook.Bid, Price: 10005, Qty: 10, Timestamp: 1_000}, e.orders[0])

	require.Len(t, out.sent, 1)
	er, ok := out.sent[0].(fix44er.ExecutionReport)
	require.True(t, ok)

	execType, _ := er.GetExecType()
	ordStatus, _ := er.GetOrdStatus()
	leaves, _ := er.GetLeavesQty()
	clOrdID, _ := er.GetClOrdID()
	symbol, _ := er.GetSymbol()
	assert.Equal(t, enum.ExecType_NEW, execType)
	assert.Equal(t, enum.OrdStatus_NEW, ordStatus)
	assert.True(t, decimal.NewFromInt(10).Equal(leaves))
	assert.Equal(t, "42", clOrdID)
	assert.Equal(t, "ERG", symbol)
}

func TestNewOrderSingle44RejectedByConversion(t *testing.T) {
	e := &recordingEngine{}
	app, out := newTestApp(t, e)

	require.Nil(t, app.onNewOrderSingle44(newOrder44("not-a-number", enum.Side_BUY, "1", 1), testSession))
	require.Nil(t, app.onNewOrderSingle44(newOrder44("7", enum.Side_SELL, "1.001", 1), testSession))

	assert.Empty(t, e.orders)
	require.Len(t, out.sent, 2)
	for _, m := range out.sent {
		er := m.(fix44er.ExecutionReport)
		execType, _ := er.GetExecType()
		assert.Equal(t, enum.ExecType_REJECTED, execType)
		text, _ := er.GetText()
		assert.NotEmpty(t, text)
	}
}

func TestNewOrderSingle44EngineUnavailable(t *testing.T) {
	app, out := newTestApp(t, &recordingEngine{err: engine.ErrQueueFull})

	require.Nil(t, app.onNewOrderSingle44(newOrder44("1", enum.Side_BUY, "1", 1), testSession))
	require.Len(t, out.sent, 1)
	er := out.sent[0].(fix44er.ExecutionReport)
	ordStatus, _ := er.GetOrdStatus()
	text, _ := er.GetText()
	assert.Equal(t, enum.OrdStatus_REJECTED, ordStatus)
	assert.Contains(t, text, "engine unavailable")
}

func TestNewOrderSingle44ClockFault(t *testing.T) {
	e := &recordingEngine{}
	app, out := newTestApp(t, e)
	app.clock = clock.Func(func() time.Time { return time.Unix(-10, 0) })

	require.Nil(t, app.onNewOrderSingle44(newOrder44("1", enum.Side_BUY, "1", 1), testSession))
	assert.Empty(t, e.orders)
	execType, _ := out.sent[0].(fix44er.ExecutionReport).GetExecType()
	assert.Equal(t, enum.ExecType_REJECTED, execType)
}

func TestNewOrderSingle42Accepted(t *testing.T) {
	e := &recordingEngine{}
	app, out := newTestApp(t, e)

	msg := fix42nos.New(
		field.NewClOrdID("9"),
		field.NewHandlInst(enum.HandlInst_AUTOMATED_EXECUTION_ORDER_PRIVATE_NO_BROKER_INTERVENTION),
		field.NewSymbol("ERG"),
		field.NewSide(enum.Side_SELL),
		field.NewTransactTime(time.Now()),
		field.NewOrdType(enum.OrdType_LIMIT),
	)
	msg.SetPrice(decimal.RequireFromString("0.5"), 2)
	msg.SetOrderQty(decimal.NewFromInt(3), 0)

	session42 := quickfix.SessionID{BeginString: quickfix.BeginStringFIX42, SenderCompID: "MATCHD", TargetCompID: "CLIENT"}
	require.Nil(t, app.onNewOrderSingle42(msg, session42))

	require.Len(t, e.orders, 1)
	assert.Equal(t, orderbook.Order{ID: 9, Side: orderbook.Ask, Price: 50, Qty: 3, Timestamp: 1_000}, e.orders[0])

	er, ok := out.sent[0].(fix42er.ExecutionReport)
	require.True(t, ok)
	execTransType, _ := er.GetExecTransType()
	execType, _ := er.GetExecType()
	assert.Equal(t, enum.ExecTransType_NEW, execTransType)
	assert.Equal(t, enum.ExecType_NEW, execType)
}
