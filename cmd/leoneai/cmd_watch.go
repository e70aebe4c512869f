package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"LeoneAI/internal/di"
	"LeoneAI/internal/domain/models"
	"LeoneAI/internal/service/feed"
	"LeoneAI/pkg/util"

	"github.com/spf13/cobra"
)

var watchMultiplex bool

// watchCmd prints live ticks until interrupted
var watchCmd = &cobra.Command{
	Use:   "watch <symbol>...",
	Short: "Stream live prices for one or more symbols",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().BoolVarP(&watchMultiplex, "multiplex", "m", false, "use one multiplexed connection for all symbols")
}

func runWatch(cmd *cobra.Command, args []string) error {
	symbols := make([]string, 0, len(args))
	for _, a := range args {
		symbols = append(symbols, util.NormalizeSymbol(a))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withConsole(ctx, func(ctx context.Context, c *di.Console) error {
		var subs []*feed.Subscription
		if watchMultiplex {
			subs = append(subs, c.Feed.SubscribeMany(ctx, symbols))
		} else {
			for _, s := range symbols {
				subs = append(subs, c.Feed.Subscribe(ctx, s))
			}
		}

		out := &syncWriter{w: cmd.OutOrStdout()}
		var wg sync.WaitGroup
		for _, sub := range subs {
			wg.Add(1)
			go func(sub *feed.Subscription) {
				defer wg.Done()
				printTicks(out, sub)
			}(sub)
		}

		<-ctx.Done()
		for _, sub := range subs {
			_ = sub.Close()
		}
		wg.Wait()
		return nil
	})
}

func printTicks(out *syncWriter, sub *feed.Subscription) {
	ticks, errs := sub.Ticks(), sub.Errors()
	for ticks != nil || errs != nil {
		select {
		case t, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			out.printf("%s %-10s %s %+.2f%%\n",
				t.Timestamp.Local().Format("15:04:05"), t.Symbol,
				models.FormatMoney(t.Price, models.CurrencyUSD), t.ChangePercent)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			var perr *feed.ParseError
			if errors.As(err, &perr) {
				out.printf("%s: dropped malformed frame\n", sub.Channel())
				continue
			}
			out.printf("%s: %v\n", sub.Channel(), err)
		}
	}
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) printf(format string, a ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format, a...)
}
