package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/joripage/ergodic/pkg/engine"
	"github.com/joripage/ergodic/pkg/orderbook"
)

const (
	minPrice = 10_000
	maxPrice = 20_000
	minQty   = 1
	maxQty   = 100
)

func randomOrder(r *rand.Rand, id uint64) orderbook.Order {
	side := orderbook.Bid
	if r.Intn(2) == 0 {
		side = orderbook.Ask
	}
	return orderbook.Order{
		ID:        id,
		Side:      side,
		Price:     int64(minPrice + r.Intn(maxPrice-minPrice+1)),
		Qty:       uint64(r.Intn(maxQty-minQty+1) + minQty),
		Timestamp: time.Now().UnixNano(),
	}
}

func main() {
	numOrders := flag.Int("orders", 1_000_000, "orders to submit")
	producers := flag.Int("producers", 4, "concurrent producers")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	eng := engine.New(engine.Config{TradeBuffer: 1 << 16})
	ctx := context.Background()

	runDone := make(chan error, 1)
	go func() { runDone <- eng.Run(ctx) }()

	totalMatched := 0
	totalQty := uint64(0)
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for t := range eng.Trades() {
			totalMatched++
			totalQty += t.Qty
			if totalMatched <= 5 {
				log.Printf("match @ %d qty %d", t.Price, t.Qty)
			}
		}
	}()

	start := time.Now()
	var wg sync.WaitGroup
	perProducer := *numOrders / *producers
	for p := 0; p < *producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(*seed + int64(p)))
			for i := 0; i < perProducer; i++ {
				id := uint64(p*perProducer + i + 1)
				if err := eng.Submit(ctx, randomOrder(r, id)); err != nil {
					log.Printf("submit %d: %v", id, err)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	q, err := eng.Quote(ctx)
	if err != nil {
		log.Fatalf("quote: %v", err)
	}
	elapsed := time.Since(start)

	eng.Close()
	if err := <-runDone; err != nil {
		log.Fatalf("engine: %v", err)
	}
	<-consumed

	submitted := perProducer * *producers
	fmt.Println("--------")
	fmt.Printf("Total Orders     : %d\n", submitted)
	fmt.Printf("Total Matches    : %d\n", totalMatched)
	fmt.Printf("Total Matched Qty: %d\n", totalQty)
	if q.OK {
		fmt.Printf("Final Quote      : %d / %d\n", q.Bid, q.Ask)
	}
	fmt.Printf("Time Taken       : %s\n", elapsed)
	fmt.Printf("Throughput       : %.0f orders/sec\n", float64(submitted)/elapsed.Seconds())
}
