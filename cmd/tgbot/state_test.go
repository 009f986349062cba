package main

import (
	"fmt"
	"sync"
	"testing"
)

func TestChatStateConcurrentAccess(t *testing.T) {
	b := &bot{states: make(map[int64]chatState)}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			b.updateState(1, func(s *chatState) { s.Symbol = fmt.Sprintf("SYM%d", i) })
		}(i)
		go func() {
			defer wg.Done()
			b.updateState(1, func(s *chatState) { s.Timeframe = "4h" })
		}()
		go func() {
			defer wg.Done()
			_ = b.hints(1)
		}()
	}
	wg.Wait()

	got := b.hints(1)
	if got.Symbol == "" || got.Timeframe != "4h" {
		t.Errorf("hints(1) = %+v, want a symbol and timeframe 4h", got)
	}
}

func TestChatStateUpdatesKeepOtherFields(t *testing.T) {
	b := &bot{states: make(map[int64]chatState)}

	if got := b.hints(7); got != (chatState{}) {
		t.Errorf("hints for an unknown chat = %+v, want zero value", got)
	}

	b.updateState(7, func(s *chatState) { s.Symbol = "EUR/USD" })
	b.updateState(7, func(s *chatState) { s.Timeframe = "1h" })

	want := chatState{Symbol: "EUR/USD", Timeframe: "1h"}
	if got := b.hints(7); got != want {
		t.Errorf("hints(7) = %+v, want %+v", got, want)
	}
	if got := b.hints(8); got != (chatState{}) {
		t.Errorf("hints(8) = %+v, want zero value", got)
	}
}
