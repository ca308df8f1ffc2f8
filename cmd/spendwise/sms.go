package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/config"
	"github.com/Veraticus/spendwise/internal/ingest"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/notify"
	"github.com/Veraticus/spendwise/internal/pattern"
	"github.com/Veraticus/spendwise/internal/sms"
	"github.com/Veraticus/spendwise/internal/storage"
	"github.com/spf13/cobra"
)

func smsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sms",
		Short: "Parse and store bank SMS notifications",
	}

	cmd.AddCommand(smsParseCmd())
	cmd.AddCommand(smsIngestCmd())

	return cmd
}

func newSMSPipeline(cfg config.Config, store *storage.SQLiteStorage, dedup *sms.DedupCache, notifier notify.Notifier) *ingest.SMSPipeline {
	return ingest.NewSMSPipeline(store, ingest.SMSPipelineOptions{
		Dedup:       dedup,
		Notifier:    notifier,
		Logger:      slog.Default(),
		SkipCredits: cfg.SMS.SkipCredits,
	})
}

func smsParseCmd() *cobra.Command {
	var (
		sender string
		body   string
	)

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Show what a message parses to without storing it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if !sms.IsBankSender(sender) {
				_, err := fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%q is not a known bank sender", sender)))
				return err
			}

			parsed, ok := sms.NewParser().Parse(body, sender)
			if !ok {
				_, err := fmt.Fprintln(out, cli.FormatWarning("Not a transaction message"))
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			engine, err := pattern.LoadEngine(ctx, store)
			if err != nil {
				return err
			}
			category := "-"
			if c, catErr := store.GetCategory(ctx, engine.Categorize(parsed.Merchant)); catErr == nil {
				category = c.Name
			}

			lines := []string{
				"Amount:   " + cli.FormatSigned(parsed.Amount, parsed.Type != model.TransactionCredit),
				"Type:     " + string(parsed.Type),
				"Merchant: " + parsed.Merchant,
				"Bank:     " + parsed.BankName,
				"Account:  " + valueOr(parsed.AccountLast4, "-"),
				"Category: " + category,
			}
			_, err = fmt.Fprintln(out, cli.RenderBox(cli.MessageIcon+" Parsed SMS", strings.Join(lines, "\n")))
			return err
		},
	}

	cmd.Flags().StringVar(&sender, "sender", "", "sender id, e.g. VM-HDFCBK")
	cmd.Flags().StringVar(&body, "body", "", "message text")
	_ = cmd.MarkFlagRequired("sender")
	_ = cmd.MarkFlagRequired("body")

	return cmd
}

func smsIngestCmd() *cobra.Command {
	var (
		sender string
		body   string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Store a bank SMS as a categorized transaction",
		Long: `Run one message (--sender and --body) or a JSON file of messages
(--file, an array of {"sender","body","delivered_at"}) through the SMS
pipeline: bank check, parse, categorize, store and notify.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" && (sender == "" || body == "") {
				return common.NewUserError("give --sender and --body, or --file", nil)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "SMS ingest").
				WithHint("Messages handled so far are saved")
			ctx, stop := handler.HandleInterrupts(cmd.Context())
			defer stop()

			store, err := openStorage(ctx, cfg.Database.Path)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			out := cmd.OutOrStdout()
			dedup := sms.NewDedupCache(cfg.SMS.DedupWindow, cfg.SMS.DedupCapacity)

			if file == "" {
				notifier := notify.Multi{notify.NewLogNotifier(slog.Default()), notify.NewConsoleNotifier(out)}
				pipeline := newSMSPipeline(cfg, store, dedup, notifier)
				result, err := pipeline.Handle(ctx, ingest.Message{Sender: sender, Body: body, DeliveredAt: time.Now()})
				if err != nil {
					return err
				}
				if result.Outcome != ingest.OutcomeStored {
					_, err = fmt.Fprintln(out, cli.FormatInfo(outcomeText(result.Outcome)))
				}
				return err
			}

			msgs, err := readMessages(file)
			if err != nil {
				return err
			}

			pipeline := newSMSPipeline(cfg, store, dedup, notify.NewLogNotifier(slog.Default()))
			counts := make(map[ingest.Outcome]int)
			bar := cli.NewProgressBar(cmd.ErrOrStderr(), len(msgs), "Ingesting")
			for _, msg := range msgs {
				if ctx.Err() != nil {
					break
				}
				result, err := pipeline.Handle(ctx, msg)
				if err != nil {
					slog.Warn("Failed to ingest message", "sender", msg.Sender, "error", err)
				}
				counts[result.Outcome]++
				_ = bar.Add(1)
			}
			_ = bar.Finish()

			if handler.WasInterrupted() {
				return ctx.Err()
			}
			return printOutcomeSummary(out, counts)
		},
	}

	cmd.Flags().StringVar(&sender, "sender", "", "sender id, e.g. VM-HDFCBK")
	cmd.Flags().StringVar(&body, "body", "", "message text")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with an array of messages")

	return cmd
}

func readMessages(path string) ([]ingest.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("cannot read %s", path), err)
	}
	var msgs []ingest.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, common.NewUserError(fmt.Sprintf("%s is not a JSON array of messages", path), err)
	}
	if len(msgs) == 0 {
		return nil, common.NewUserError(fmt.Sprintf("%s holds no messages", path), errors.New("empty message list"))
	}
	return msgs, nil
}

func outcomeText(o ingest.Outcome) string {
	switch o {
	case ingest.OutcomeDuplicate:
		return "Already seen this message"
	case ingest.OutcomeNotBank:
		return "Sender is not a known bank; nothing stored"
	case ingest.OutcomeNotTransaction:
		return "Not a transaction message; nothing stored"
	case ingest.OutcomeSkipped:
		return "Credit skipped (sms.skip_credits is on)"
	case ingest.OutcomeFailed:
		return "Failed to store the message"
	default:
		return "Stored"
	}
}

func printOutcomeSummary(w io.Writer, counts map[ingest.Outcome]int) error {
	order := []ingest.Outcome{
		ingest.OutcomeStored,
		ingest.OutcomeSkipped,
		ingest.OutcomeDuplicate,
		ingest.OutcomeNotTransaction,
		ingest.OutcomeNotBank,
		ingest.OutcomeFailed,
	}

	table := newTable(w)
	defer flushTable(table)
	for _, o := range order {
		if counts[o] == 0 {
			continue
		}
		if err := writeRow(table, string(o), strconv.Itoa(counts[o])); err != nil {
			return err
		}
	}
	return nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
