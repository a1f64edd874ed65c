package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/vocadeck/internal/config"
	"github.com/conorfennell/vocadeck/internal/deck"
	"github.com/conorfennell/vocadeck/internal/domain"
	"github.com/conorfennell/vocadeck/internal/importer"
	"github.com/conorfennell/vocadeck/internal/logging"
	"github.com/conorfennell/vocadeck/internal/prompt"
	"github.com/conorfennell/vocadeck/internal/review"
	"github.com/conorfennell/vocadeck/internal/storage"
	"github.com/conorfennell/vocadeck/internal/web"
)

const usage = `Usage: vocadeck [flags] <command> [args]

Commands:
  serve                              Run the JSON API
  decks                              List decks
  add <deck> <word> [translation]    Add or update a card
  review <deck>                      Review the deck's due cards
  sessions                           Show recent review sessions
  add-source <path|url.git> <deck>   Import a markdown directory or git repo into a deck
  sync                               Re-import every source

Flags:
`

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("vocadeck", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	config.RegisterFlags(fs)
	phonetic := fs.String("phonetic", "", "Phonetic spelling for add")
	target := fs.String("target", "", "Target language code for add and add-source")
	native := fs.String("native", "", "Native language code for add and add-source")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	slog.SetDefault(logger)

	db, err := storage.Open(cfg.DB.Path)
	if err != nil {
		logger.Error("Failed to open database", "path", cfg.DB.Path, "error", err)
		return 1
	}
	defer db.Close()
	logger.Debug("Database opened successfully", "path", cfg.DB.Path)

	a := newApp(cfg, logger, db, stdout)
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		a.prompter = prompt.NewHuhPrompter()
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "serve":
		err = a.serve()
	case "decks":
		err = a.listDecks()
	case "add":
		err = a.add(rest, domain.CardFields{Phonetic: *phonetic, TargetLanguage: *target, NativeLanguage: *native})
	case "review":
		err = a.review(rest)
	case "sessions":
		err = a.listSessions()
	case "add-source":
		err = a.addSource(rest, *target, *native)
	case "sync":
		err = a.sync()
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		fs.Usage()
		return 2
	}
	if err != nil {
		logger.Error("Command failed", "command", cmd, "error", err)
		return 1
	}
	return 0
}

// app wires the store, scheduler and importer for one command.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *deck.Store
	scheduler *review.Scheduler
	importer  *importer.Importer
	prompter  prompt.Prompter
	out       io.Writer
}

func newApp(cfg config.Config, logger *slog.Logger, db *storage.DB, out io.Writer) *app {
	store := deck.New(db, deck.Options{
		Logger:              logger,
		DefaultDeckName:     cfg.Decks.DefaultName,
		HistoryLimit:        cfg.Decks.SessionHistory,
		MasteredRepetitions: cfg.Decks.MasteredRepetitions,
	})
	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		scheduler: review.NewScheduler(store, logger),
		importer:  importer.New(db, store, cfg.ReposDir, logger),
		prompter:  &prompt.NoopPrompter{},
		out:       out,
	}
}

// serve runs the API, and the source watcher when enabled, until SIGINT or
// SIGTERM.
func (a *app) serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           web.NewServer(a.store, a.scheduler, a.importer, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("Starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	if a.cfg.Watch {
		g.Go(func() error {
			return a.importer.Watch(ctx, importer.DefaultDebounce)
		})
	}
	return g.Wait()
}

func (a *app) listDecks() error {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCARDS\tDUE\tMASTERED")
	for _, d := range a.store.GetDeckNames() {
		stats, _ := a.store.GetDeckStats(d.ID)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", d.ID, d.Name, d.CardCount, stats.Due, stats.Mastered)
	}
	return tw.Flush()
}

func (a *app) add(args []string, fields domain.CardFields) error {
	if len(args) < 2 || len(args) > 3 {
		return errors.New("usage: add <deck> <word> [translation]")
	}
	fields.Word = args[1]
	if len(args) == 3 {
		fields.Translation = args[2]
	} else {
		tr, err := a.prompter.Input("Translation of "+fields.Word, "")
		if err != nil && !errors.Is(err, prompt.ErrNonInteractive) {
			return err
		}
		fields.Translation = tr
	}

	deckID := args[0]
	c := a.store.AddCardToDeck(deckID, fields)
	if d, ok := c.Get(deckID); ok {
		if i := d.FindWord(fields.Word); i >= 0 {
			fmt.Fprintf(a.out, "Saved %q to %s (%d cards)\n", fields.Word, deckID, len(d.Cards))
			return nil
		}
	}
	return fmt.Errorf("card %q was not saved", fields.Word)
}

func (a *app) review(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: review <deck>")
	}
	if _, ok := a.store.GetDeckStats(args[0]); !ok {
		return fmt.Errorf("deck %q not found", args[0])
	}
	sess := review.Start(a.store, a.scheduler, args[0], nil)
	summary, recorded, err := runReview(a.out, a.prompter, sess)
	if recorded {
		fmt.Fprintf(a.out, "Reviewed %d cards, %d correct, in %s\n",
			summary.CardsReviewed, summary.CorrectCount,
			(time.Duration(summary.DurationMillis) * time.Millisecond).Round(time.Second))
	}
	return err
}

func (a *app) listSessions() error {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tDECK\tREVIEWED\tCORRECT\tDURATION")
	for _, s := range a.store.LoadReviewSessions() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			time.UnixMilli(s.Timestamp).Format(time.DateTime), s.DeckID,
			s.CardsReviewed, s.CorrectCount,
			(time.Duration(s.DurationMillis) * time.Millisecond).Round(time.Second))
	}
	return tw.Flush()
}

func (a *app) addSource(args []string, target, native string) error {
	if len(args) != 2 {
		return errors.New("usage: add-source <path|url.git> <deck>")
	}
	src, err := a.importer.AddSource(args[0], args[1], target, native)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s source %d for deck %s. Run sync to import it.\n", src.Type, src.ID, src.DeckID)
	return nil
}

func (a *app) sync() error {
	a.importer.SetProgress(a.out)
	results, err := a.importer.RunSync()
	if err != nil {
		return err
	}
	var errs []error
	for _, res := range results {
		fmt.Fprintf(a.out, "%s -> %s: %d entries, %d removed\n", res.Path, res.DeckID, res.Parsed, res.Removed)
		if err := res.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Path, err))
		}
	}
	return errors.Join(errs...)
}
