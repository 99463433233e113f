package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"wattsplit/internal/stats"
	"wattsplit/pkg/wattsplit"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "train":
		return runTrain(ctx, args[1:])
	case "disaggregate":
		return runDisaggregate(ctx, args[1:])
	case "params":
		return runParams(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func printUsage() {
	fmt.Println(`wattsplitctl <command> [flags]

commands:
  train         train per-appliance models from mains and appliance CSVs
  disaggregate  estimate appliance series from a mains CSV
  params        compute appliance normalization stats from appliance CSVs
  runs          list persisted checkpoints and fit runs`)
}

func usageError(msg string) error {
	printUsage()
	return fmt.Errorf("usage: %s", msg)
}

// applianceFlags collects repeated -appliance name=path pairs.
type applianceFlags []string

func (a *applianceFlags) String() string { return strings.Join(*a, ",") }

func (a *applianceFlags) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("appliance flag must be name=path, got %q", v)
	}
	*a = append(*a, v)
	return nil
}

func loadAppliances(flags applianceFlags) ([]wattsplit.ApplianceSeries, error) {
	appliances := make([]wattsplit.ApplianceSeries, 0, len(flags))
	for _, pair := range flags {
		name, path, _ := strings.Cut(pair, "=")
		series, err := readSeriesCSV(path)
		if err != nil {
			return nil, fmt.Errorf("appliance %s: %w", name, err)
		}
		appliances = append(appliances, wattsplit.ApplianceSeries{
			Name:   name,
			Chunks: [][]float64{series},
		})
	}
	return appliances, nil
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	mainsPath := fs.String("mains", "", "path to mains CSV")
	round := fs.Int("round", 0, "outer training round index")
	var appliances applianceFlags
	fs.Var(&appliances, "appliance", "appliance series as name=path (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *mainsPath == "" || len(appliances) == 0 {
		return usageError("train requires -mains and at least one -appliance")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	mains, err := readSeriesCSV(*mainsPath)
	if err != nil {
		return fmt.Errorf("mains: %w", err)
	}
	apps, err := loadAppliances(appliances)
	if err != nil {
		return err
	}

	fmt.Printf("loaded %s mains readings\n", humanize.Comma(int64(len(mains))))

	d, err := wattsplit.New(ctx, cfg.options())
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.PartialFit(ctx, [][]float64{mains}, apps, *round); err != nil {
		return err
	}

	fmt.Println("appliance params:")
	for name, st := range d.ApplianceParams() {
		fmt.Printf("  %s: mean=%.2f std=%.2f\n", name, st.Mean, st.Std)
	}
	return nil
}

func runDisaggregate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("disaggregate", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	mainsPath := fs.String("mains", "", "path to mains CSV")
	round := fs.Int("round", 0, "round whose checkpoints to load")
	outPath := fs.String("out", "disaggregated.csv", "output CSV path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *mainsPath == "" {
		return usageError("disaggregate requires -mains")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if len(cfg.ApplianceParams) == 0 {
		return fmt.Errorf("disaggregate requires appliance_params in the config")
	}

	mains, err := readSeriesCSV(*mainsPath)
	if err != nil {
		return fmt.Errorf("mains: %w", err)
	}

	d, err := wattsplit.New(ctx, cfg.options())
	if err != nil {
		return err
	}
	defer d.Close()

	records, err := d.Checkpoints(ctx)
	if err != nil {
		return err
	}
	loaded := 0
	for _, rec := range records {
		if rec.Round != *round {
			continue
		}
		if err := d.LoadCheckpoint(ctx, rec.Appliance, rec.Round); err != nil {
			return err
		}
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("no checkpoints found for round %d", *round)
	}

	results, err := d.Disaggregate(ctx, [][]float64{mains})
	if err != nil {
		return err
	}

	if err := writeResultsCSV(*outPath, results[0]); err != nil {
		return err
	}
	fmt.Printf("wrote %s rows for %d appliances to %s\n",
		humanize.Comma(int64(len(mains))), loaded, *outPath)
	return nil
}

func runParams(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("params", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	var appliances applianceFlags
	fs.Var(&appliances, "appliance", "appliance series as name=path (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(appliances) == 0 {
		return usageError("params requires at least one -appliance")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	apps, err := loadAppliances(appliances)
	if err != nil {
		return err
	}

	d, err := wattsplit.New(ctx, cfg.options())
	if err != nil {
		return err
	}
	defer d.Close()

	d.EnsureApplianceParams(apps)
	for name, st := range d.ApplianceParams() {
		fmt.Printf("%s: mean=%.4f std=%.4f\n", name, st.Mean, st.Std)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	d, err := wattsplit.New(ctx, cfg.options())
	if err != nil {
		return err
	}
	defer d.Close()

	records, err := d.Checkpoints(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no checkpoints")
	}
	for _, rec := range records {
		fmt.Printf("%s round %d: val=%.6f run=%s at=%s\n",
			rec.Appliance, rec.Round, rec.ValidationLoss, rec.RunID, rec.CreatedAtUTC)
	}

	if cfg.ArtifactsDir == "" {
		return nil
	}
	index, err := stats.ListRunIndex(cfg.ArtifactsDir)
	if err != nil {
		return err
	}
	for _, entry := range index {
		fmt.Printf("fit %s: %s round %d epochs=%d best=%.6f\n",
			entry.RunID, entry.Appliance, entry.Round, entry.Epochs, entry.BestValidation)
	}
	return nil
}
