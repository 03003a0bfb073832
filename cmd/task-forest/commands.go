package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hochfrequenz/task-forest/internal/batch"
	"github.com/hochfrequenz/task-forest/internal/config"
	"github.com/hochfrequenz/task-forest/internal/domain"
	"github.com/hochfrequenz/task-forest/internal/export"
	"github.com/hochfrequenz/task-forest/internal/foreststore"
	"github.com/hochfrequenz/task-forest/internal/notify"
	"github.com/hochfrequenz/task-forest/internal/reconstruct"
	"github.com/hochfrequenz/task-forest/internal/record"
	"github.com/hochfrequenz/task-forest/internal/validate"
	"github.com/hochfrequenz/task-forest/internal/watch"
	"github.com/hochfrequenz/task-forest/tui"
	"github.com/hochfrequenz/task-forest/web/api"
)

var (
	rebuildDir     string
	rebuildTrace   bool
	treeWorkspace  string
	statsLimit     int
	watchSchedules string
	servePort      int
	exportFormat   string
	exportOutput   string
)

func init() {
	rebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the forest from transcripts",
		RunE:  runRebuild,
	}
	rebuildCmd.Flags().StringVar(&rebuildDir, "dir", "", "transcript directory (overrides config)")
	rebuildCmd.Flags().BoolVar(&rebuildTrace, "trace", false, "log every validation decision")
	rootCmd.AddCommand(rebuildCmd)

	treeCmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the reconstructed forest",
		RunE:  runTree,
	}
	treeCmd.Flags().StringVar(&treeWorkspace, "workspace", "", "filter by workspace")
	rootCmd.AddCommand(treeCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show recent reconstruction runs",
		RunE:  runStats,
	}
	statsCmd.Flags().IntVar(&statsLimit, "limit", 10, "number of runs to show")
	rootCmd.AddCommand(statsCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch transcripts and rebuild on change",
		RunE:  runWatch,
	}
	watchCmd.Flags().StringVar(&watchSchedules, "schedules", "", "cron schedule file for periodic rebuilds")
	rootCmd.AddCommand(watchCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web API server",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch the forest dashboard",
		RunE:  runTUI,
	}
	rootCmd.AddCommand(tuiCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the forest as YAML or JSON",
		RunE:  runExport,
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "yaml", "output format: yaml or json")
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

func openStore(cfg *config.Config) (*foreststore.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.General.DatabasePath), 0o755); err != nil {
		return nil, err
	}
	return foreststore.New(cfg.General.DatabasePath)
}

// rebuilder ties the reconstruction core to the transcript directory
// and the store. It also backs the web API's rebuild endpoint.
type rebuilder struct {
	cfg   *config.Config
	store *foreststore.Store
	dir   string
	trace validate.EventFunc
}

func newRebuilder(cfg *config.Config, store *foreststore.Store, dir string) *rebuilder {
	if dir == "" {
		dir = cfg.General.TranscriptDir
	}
	return &rebuilder{cfg: cfg, store: store, dir: dir}
}

func (r *rebuilder) Rebuild(ctx context.Context) (*domain.RunStats, error) {
	records, skipped, err := record.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("reading transcripts from %s: %w", r.dir, err)
	}
	if skipped > 0 {
		log.Printf("skipped %d unreadable or unparseable transcript entries", skipped)
	}

	opts := r.cfg.Options()
	opts.Trace = r.trace
	orch := reconstruct.New(opts)
	skeletons, stats, err := orch.Run(records)
	if err != nil {
		return nil, err
	}

	if err := r.store.ReplaceForest(stats.RunID, skeletons); err != nil {
		return nil, fmt.Errorf("persisting forest: %w", err)
	}
	if err := r.store.SaveRun(stats); err != nil {
		return nil, fmt.Errorf("persisting run stats: %w", err)
	}

	return stats, nil
}

func runRebuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rb := newRebuilder(cfg, store, rebuildDir)
	if rebuildTrace {
		rb.trace = logTraceEvent
	}

	stats, err := rb.Rebuild(cmd.Context())
	if err != nil {
		return err
	}

	printStats(stats)
	return nil
}

func logTraceEvent(ev validate.Event) {
	verdict := "admitted"
	switch {
	case !ev.Admitted:
		verdict = "rejected: " + string(ev.Reason)
	case ev.Relaxed:
		verdict = "admitted with workspace mismatch"
	}
	log.Printf("%s %s -> %s %s", ev.Phase, ev.ParentID, ev.ChildID, verdict)
}

func printStats(st *domain.RunStats) {
	fmt.Printf("Run %s finished in %s\n", st.RunID, st.Duration().Round(time.Millisecond))
	fmt.Printf("  Records:    %d total, %d malformed\n", st.TotalRecords, st.MalformedRecords)
	fmt.Printf("  Skeletons:  %d (%d roots, max depth %d)\n", st.TotalSkeletons, st.RootCount, st.MaxDepth)
	fmt.Printf("  Declared:   %d edges, %d kept, %d invalidated\n", st.DeclaredEdges, st.ValidatedEdges, st.InvalidatedEdges)
	if len(st.InvalidatedBy) > 0 {
		var parts []string
		for _, reason := range []domain.Reason{domain.ReasonCycle, domain.ReasonTemporal, domain.ReasonWorkspace, domain.ReasonMissingParent} {
			if n := st.InvalidatedBy[reason]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s=%d", reason, n))
			}
		}
		if len(parts) > 0 {
			fmt.Printf("              (%s)\n", strings.Join(parts, ", "))
		}
	}
	fmt.Printf("  Resolved:   %d edges, %d ambiguous, %d unresolved\n", st.ResolvedEdges, st.AmbiguousMatches, st.Unresolved)
	if st.WorkspaceRelaxed > 0 {
		fmt.Printf("  Relaxed:    %d cross-workspace edges admitted\n", st.WorkspaceRelaxed)
	}
}

func runTree(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	skeletons, err := store.ListSkeletons(foreststore.ListOptions{Workspace: treeWorkspace})
	if err != nil {
		return err
	}
	if len(skeletons) == 0 {
		fmt.Println("Forest is empty. Run 'task-forest rebuild' first.")
		return nil
	}

	children := make(map[string][]*domain.Skeleton)
	var roots []*domain.Skeleton
	for _, sk := range skeletons {
		if sk.HasParent() {
			children[sk.ParentTaskID] = append(children[sk.ParentTaskID], sk)
		} else {
			roots = append(roots, sk)
		}
	}
	byCreation := func(list []*domain.Skeleton) {
		sort.Slice(list, func(i, j int) bool {
			if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
				return list[i].CreatedAt.Before(list[j].CreatedAt)
			}
			return list[i].TaskID < list[j].TaskID
		})
	}
	byCreation(roots)
	for _, list := range children {
		byCreation(list)
	}

	var print func(sk *domain.Skeleton, connector, childPrefix string)
	print = func(sk *domain.Skeleton, connector, childPrefix string) {
		marker := ""
		if sk.IsReconstructed() {
			marker = " ~"
		}
		instruction := sk.TruncatedInstruction
		if len(instruction) > 60 {
			instruction = instruction[:57] + "..."
		}
		fmt.Printf("%s%s%s  %s\n", connector, sk.TaskID, marker, instruction)
		kids := children[sk.TaskID]
		for i, child := range kids {
			if i == len(kids)-1 {
				print(child, childPrefix+"└─ ", childPrefix+"   ")
			} else {
				print(child, childPrefix+"├─ ", childPrefix+"│  ")
			}
		}
	}
	for _, root := range roots {
		print(root, "", "")
		fmt.Println()
	}

	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(statsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tDURATION\tSKELETONS\tRESOLVED\tUNRESOLVED\tAMBIGUOUS\tROOTS")
	for _, st := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			st.RunID,
			st.StartedAt.Local().Format("2006-01-02 15:04:05"),
			st.Duration().Round(time.Millisecond),
			st.TotalSkeletons,
			st.ResolvedEdges,
			st.Unresolved,
			st.AmbiguousMatches,
			st.RootCount)
	}
	w.Flush()

	return nil
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	var notifiers []notify.Notifier
	if cfg.Notifications.Desktop {
		notifiers = append(notifiers, notify.NewDesktopNotifier(true))
	}
	if cfg.Notifications.SlackWebhook != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.Notifications.SlackWebhook))
	}
	if len(notifiers) == 0 {
		return notify.NoopNotifier{}
	}
	return notify.NewMultiNotifier(notifiers...)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rb := newRebuilder(cfg, store, "")
	notifier := buildNotifier(cfg)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rebuildNow := func(reason string) {
		stats, err := rb.Rebuild(ctx)
		if err != nil {
			log.Printf("rebuild (%s) failed: %v", reason, err)
			return
		}
		log.Printf("rebuild (%s): %d skeletons, %d resolved, %d unresolved",
			reason, stats.TotalSkeletons, stats.ResolvedEdges, stats.Unresolved)
	}

	watcher, err := watch.New(cfg.General.TranscriptDir, func(files []string) {
		log.Printf("%d transcript file(s) changed", len(files))
		rebuildNow("change")
	})
	if err != nil {
		return fmt.Errorf("watching %s: %w", cfg.General.TranscriptDir, err)
	}
	defer watcher.Stop()
	watcher.SetDebounce(cfg.WatchDebounce())
	watcher.Start(ctx)

	// Optional cron schedule alongside the change watcher
	if watchSchedules != "" {
		schedCfg, err := batch.LoadScheduleConfig(config.ExpandPath(watchSchedules))
		if err != nil {
			return err
		}
		if len(schedCfg.Rebuilds) > 0 {
			sched, err := batch.NewScheduler(schedCfg.Rebuilds)
			if err != nil {
				return err
			}
			sched.SetNotifier(notifier)
			sched.SetPruner(store)
			go sched.Start(ctx, func(runCtx context.Context, rc batch.RebuildConfig) (*domain.RunStats, error) {
				return newRebuilder(cfg, store, rc.TranscriptDir).Rebuild(runCtx)
			})
			defer sched.Stop()
			log.Printf("scheduled rebuilds: %s", strings.Join(sched.ListRebuilds(), ", "))
		}
	}

	// Rebuild once at startup so the store reflects the current transcripts
	rebuildNow("startup")

	log.Printf("watching %s (debounce %s)", cfg.General.TranscriptDir, cfg.WatchDebounce())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	port := servePort
	if port == 0 {
		port = cfg.Web.Port
	}

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, port)
	rb := newRebuilder(cfg, store, "")
	server := api.NewServer(store, rb, addr)

	// Rebuilds triggered over the API stream their validation decisions
	// to connected SSE clients.
	rb.trace = func(ev validate.Event) {
		server.Broadcast(api.SSEEvent{Type: api.EventTrace, Data: ev})
	}

	fmt.Printf("Serving forest API at http://%s\n", addr)
	return server.Start()
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rb := newRebuilder(cfg, store, "")

	load := func() ([]*domain.Skeleton, []*domain.RunStats, error) {
		skeletons, err := store.ListSkeletons(foreststore.ListOptions{})
		if err != nil {
			return nil, nil, err
		}
		runs, err := store.ListRuns(20)
		if err != nil {
			return nil, nil, err
		}
		return skeletons, runs, nil
	}

	skeletons, runs, err := load()
	if err != nil {
		return err
	}

	model := tui.NewModel(tui.ModelConfig{
		Skeletons: skeletons,
		Runs:      runs,
		Reload:    load,
		Rebuild: func() (*domain.RunStats, error) {
			return rb.Rebuild(context.Background())
		},
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	skeletons, err := store.ListSkeletons(foreststore.ListOptions{})
	if err != nil {
		return err
	}

	roots := export.BuildTree(skeletons)

	out := os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch exportFormat {
	case "yaml":
		return export.WriteYAML(out, roots)
	case "json":
		return export.WriteJSON(out, roots)
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", exportFormat)
	}
}
