package fixapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	fix42er "github.com/quickfixgo/fix42/executionreport"
	fix44er "github.com/quickfixgo/fix44/executionreport"
	"github.com/shopspring/decimal"
)

// report is the version independent content of an order ack.
type report struct {
	clOrdID  string
	side     enum.Side
	qty      decimal.Decimal
	price    decimal.Decimal
	scale    int32
	rejected bool
	text     string
}

func (r report) status() (enum.ExecType, enum.OrdStatus, decimal.Decimal) {
	if r.rejected {
		return enum.ExecType_REJECTED, enum.OrdStatus_REJECTED, decimal.Zero
	}
	return enum.ExecType_NEW, enum.OrdStatus_NEW, r.qty
}

func (r report) fix44(symbol string) fix44er.ExecutionReport {
	execType, ordStatus, leaves := r.status()
	msg := fix44er.New(
		field.NewOrderID(r.clOrdID),
		field.NewExecID(uuid.New().String()),
		field.NewExecType(execType),
		field.NewOrdStatus(ordStatus),
		field.NewSide(r.side),
		field.NewLeavesQty(leaves, 0),
		field.NewCumQty(decimal.Zero, 0),
		field.NewAvgPx(decimal.Zero, r.scale),
	)
	msg.SetClOrdID(r.clOrdID)
	msg.SetOrderQty(r.qty, 0)
	msg.SetPrice(r.price, r.scale)
	msg.SetTransactTime(time.Now().UTC())
	if symbol != "" {
		msg.SetSymbol(symbol)
	}
	if r.text != "" {
		msg.SetText(r.text)
	}
	return msg
}

func (r report) fix42(symbol string) fix42er.ExecutionReport {
	execType, ordStatus, leaves := r.status()
	msg := fix42er.New(
		field.NewOrderID(r.clOrdID),
		field.NewExecID(uuid.New().String()),
		field.NewExecTransType(enum.ExecTransType_NEW),
		field.NewExecType(execType),
		field.NewOrdStatus(ordStatus),
		field.NewSymbol(symbol),
		field.NewSide(r.side),
		field.NewLeavesQty(leaves, 0),
		field.NewCumQty(decimal.Zero, 0),
		field.NewAvgPx(decimal.Zero, r.scale),
	)
	msg.SetClOrdID(r.clOrdID)
	msg.SetOrderQty(r.qty, 0)
	msg.SetPrice(r.price, r.scale)
	if r.text != "" {
		msg.SetText(r.text)
	}
	return msg
}
