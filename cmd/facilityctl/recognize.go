package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"facility/internal/batch"
	"facility/internal/facility"
	"facility/internal/queue"
	"facility/internal/store"
)

func recognizeCmd(a *app) *cobra.Command {
	var (
		debug     bool
		annotated string
	)
	cmd := &cobra.Command{
		Use:   "recognize <image>",
		Short: "Identify the inmate in a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := facility.LoadImage(args[0])
			if err != nil {
				return err
			}
			res, err := a.client.Recognition.RecognizeImage(cmd.Context(), img, debug)
			if err != nil {
				return explain(err)
			}
			if annotated != "" {
				data, err := res.AnnotatedImage()
				if err != nil {
					return fmt.Errorf("decode annotated image: %w", err)
				}
				if err := os.WriteFile(annotated, data, 0o644); err != nil {
					return err
				}
			}
			res.ImageBase64 = ""
			return a.print(res)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "ask the server for debug output")
	cmd.Flags().StringVar(&annotated, "save-annotated", "", "write the server's boxed image to this file")
	return cmd
}

type batchSummary struct {
	Path     string  `json:"path"`
	Outcome  string  `json:"outcome"`
	InmateID string  `json:"inmate_id,omitempty"`
	Score    float64 `json:"score,omitempty"`
	Error    string  `json:"error,omitempty"`
}

func summarize(r batch.Result) batchSummary {
	s := batchSummary{Path: r.Path, Outcome: r.Outcome()}
	if r.Err != nil {
		s.Error = explain(r.Err).Error()
	} else if r.Match != nil {
		s.Score = r.Match.Score
		if r.Match.InmateID != nil {
			s.InmateID = *r.Match.InmateID
		}
	}
	return s
}

// recognizeBatchCmd either queues the images for cmd/recognizer or, with
// --local, runs them through an in-process worker pool.
func recognizeBatchCmd(a *app) *cobra.Command {
	var (
		local   bool
		workers int
	)
	cmd := &cobra.Command{
		Use:   "recognize-batch <image>...",
		Short: "Recognize many photos, queued or in-process",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !local {
				if a.cfg.QueueBackend == "memory" {
					return fmt.Errorf("queue backend %q lives in this process; use --local", a.cfg.QueueBackend)
				}
				r, err := store.NewRedis(a.cfg.RedisAddr)
				if err != nil {
					return err
				}
				defer r.Close()
				q, err := queue.Open(a.cfg.QueueBackend, r.Client, a.cfg.QueueKey)
				if err != nil {
					return err
				}
				if err := batch.Enqueue(ctx, q, args...); err != nil {
					return err
				}
				return a.print(map[string]any{"queued": len(args), "queue": a.cfg.QueueKey})
			}

			q := queue.NewInMemory(len(args))
			if err := batch.Enqueue(ctx, q, args...); err != nil {
				return err
			}
			results := make(chan batch.Result, len(args))
			w := &batch.Worker{
				Queue:      q,
				Recognizer: a.client.Recognition,
				Workers:    workers,
				Limit:      len(args),
				Log:        a.log,
				OnResult:   func(r batch.Result) { results <- r },
			}
			if _, err := w.Run(ctx); err != nil {
				return err
			}
			close(results)
			out := make([]batchSummary, 0, len(args))
			for r := range results {
				out = append(out, summarize(r))
			}
			return a.print(out)
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "process in this process instead of queueing")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent requests with --local")
	return cmd
}
