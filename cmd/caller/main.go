// Command caller asks the service to phone a shop about an oil change, waits
// for the call to finish and prints what the agent found out.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"oilcall-go/internal/api"
	"oilcall-go/internal/config"
	"oilcall-go/internal/logger"
	"oilcall-go/internal/poller"
	"oilcall-go/internal/report"
	"oilcall-go/internal/types"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	var (
		server = flag.String("server", "http://localhost:"+cfg.Port, "oilcall API base URL")
		batch  = flag.String("batch", "", "xlsx file with one call request per row")
		req    types.CallRequest
	)
	flag.StringVar(&req.PhoneNumber, "phone", "", "shop phone number")
	flag.StringVar(&req.Year, "year", "", "car year")
	flag.StringVar(&req.Make, "make", "", "car make")
	flag.StringVar(&req.Model, "model", "", "car model")
	flag.StringVar(&req.Trim, "trim", "", "car trim")
	flag.Parse()

	log := logger.New().Component("caller")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	requests := []types.CallRequest{req}
	if *batch != "" {
		f, err := os.Open(*batch)
		if err != nil {
			log.WithError(err).Fatal("failed to open batch file")
		}
		requests, err = report.LoadCallRequests(f)
		f.Close()
		if err != nil {
			log.WithError(err).Fatal("failed to load batch file")
		}
	}

	client := api.NewClient(*server, 30*time.Second)
	p := poller.Poller{
		Interval:    cfg.PollInterval,
		MaxAttempts: cfg.PollMaxAttempts,
		OnUpdate: func(c *types.CallResponse) {
			log.WithField("call_id", c.CallID).WithField("call_status", c.CallStatus).Debug("polled")
		},
	}

	failed := 0
	for _, r := range requests {
		if err := run(ctx, client, p, r); err != nil {
			failed++
			color.Red("✗ %s %s %s (%s): %v", r.Year, r.Make, r.Model, r.PhoneNumber, err)
			if errors.Is(err, context.Canceled) {
				break
			}
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func run(ctx context.Context, client *api.Client, p poller.Poller, req types.CallRequest) error {
	callID, err := client.CreatePhoneCall(ctx, req)
	if err != nil {
		return err
	}
	color.Cyan("→ calling %s about a %s %s %s %s (call %s)", req.PhoneNumber, req.Year, req.Make, req.Model, req.Trim, callID)

	call, err := p.Wait(ctx, func(ctx context.Context) (*types.CallResponse, error) {
		return client.GetCall(ctx, callID)
	})
	if err != nil {
		return err
	}
	if call.CallStatus == types.CallStatusError {
		return fmt.Errorf("call %s failed: %s", callID, call.DisconnectionReason)
	}

	stored, err := client.GetPhoneCall(ctx, callID)
	if err != nil {
		return err
	}
	printResult(stored)
	return nil
}

func printResult(pc *types.PhoneCall) {
	label := color.New(color.Bold).SprintFunc()
	fmt.Printf("%s %s\n", label("Call:"), pc.CallID)
	fmt.Printf("%s %s\n", label("Oil change price:"), orDash(pc.OilChangePrice))
	fmt.Printf("%s %s\n", label("Next appointment:"), orDash(pc.SoonestServiceAppt))
	if pc.HoldTimeSeconds != nil {
		fmt.Printf("%s %.0fs\n", label("Hold time:"), *pc.HoldTimeSeconds)
	} else {
		fmt.Printf("%s %s\n", label("Hold time:"), color.YellowString("undetermined"))
	}
	if pc.SentToVoicemail != nil && *pc.SentToVoicemail {
		color.Yellow("Reached voicemail")
	}
	fmt.Printf("%s %s\n", label("Recording:"), orDash(pc.RecordingURL))
	color.Green("✓ done")
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
