package main

import (
	"flag"
	"log"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	fix44er "github.com/quickfixgo/fix44/executionreport"
	fix44nos "github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
)

// InitiatorApp logs on to matchd and sends crossing NewOrderSingle pairs.
type InitiatorApp struct {
	*quickfix.MessageRouter
	pairs   int
	price   decimal.Decimal
	acked   atomic.Int64
	reject  atomic.Int64
	started chan quickfix.SessionID
}

func newInitiatorApp(pairs int, price decimal.Decimal) *InitiatorApp {
	a := &InitiatorApp{
		MessageRouter: quickfix.NewMessageRouter(),
		pairs:         pairs,
		price:         price,
		started:       make(chan quickfix.SessionID, 1),
	}
	a.AddRoute(fix44er.Route(a.onExecutionReport))
	return a
}

func (a *InitiatorApp) OnCreate(sessionID quickfix.SessionID) {}

func (a *InitiatorApp) OnLogon(sessionID quickfix.SessionID) {
	log.Println("Logon success")
	select {
	case a.started <- sessionID:
	default:
	}
}

func (a *InitiatorApp) OnLogout(sessionID quickfix.SessionID)                       {}
func (a *InitiatorApp) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}
func (a *InitiatorApp) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}
func (a *InitiatorApp) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}
func (a *InitiatorApp) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return a.Route(msg, sessionID)
}

func (a *InitiatorApp) onExecutionReport(msg fix44er.ExecutionReport, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	execType, _ := msg.GetExecType()
	if execType == enum.ExecType_REJECTED {
		text, _ := msg.GetText()
		if a.reject.Add(1) <= 5 {
			log.Println("rejected:", text)
		}
		return nil
	}
	a.acked.Add(1)
	return nil
}

func (a *InitiatorApp) send(sessionID quickfix.SessionID) {
	start := time.Now()
	for i := 0; i < a.pairs; i++ {
		for j, side := range []enum.Side{enum.Side_BUY, enum.Side_SELL} {
			id := uint64(i*2 + j + 1)
			order := fix44nos.New(
				field.NewClOrdID(strconv.FormatUint(id, 10)),
				field.NewSide(side),
				field.NewTransactTime(time.Now()),
				field.NewOrdType(enum.OrdType_LIMIT))
			order.SetSymbol("ERG")
			order.SetPrice(a.price, 2)
			order.SetOrderQty(decimal.NewFromInt(100), 0)
			if err := quickfix.SendToTarget(order, sessionID); err != nil {
				log.Println("send:", err)
			}
		}
	}

	elapsed := time.Since(start)
	total := a.pairs * 2
	log.Printf("Sent %d messages in %v", total, elapsed)
	log.Printf("Throughput: %.2f messages/sec", float64(total)/elapsed.Seconds())
}

func main() {
	pairs := flag.Int("pairs", 10_000, "buy/sell pairs to send")
	price := flag.String("price", "100.00", "limit price of every order")
	wait := flag.Duration("wait", 5*time.Second, "time to wait for execution reports")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: fixload [flags] <initiator.cfg>")
	}
	cfgPath := flag.Arg(0)
	log.Println("cfgPath:", cfgPath)

	px, err := decimal.NewFromString(*price)
	if err != nil {
		log.Fatal(err)
	}
	app := newInitiatorApp(*pairs, px)

	cfg, err := os.Open(cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	defer cfg.Close() // nolint

	appSettings, err := quickfix.ParseSettings(cfg)
	if err != nil {
		log.Fatal(err)
	}

	storeFactory := quickfix.NewMemoryStoreFactory()
	logFactory, err := quickfix.NewFileLogFactory(appSettings)
	if err != nil {
		log.Fatal(err)
	}

	initiator, err := quickfix.NewInitiator(app, storeFactory, appSettings, logFactory)
	if err != nil {
		log.Fatal(err)
	}
	if err := initiator.Start(); err != nil {
		log.Fatal(err)
	}
	defer initiator.Stop()
	log.Println("Initiator started...")

	app.send(<-app.started)
	time.Sleep(*wait)
	log.Printf("acked=%d rejected=%d", app.acked.Load(), app.reject.Load())
}
