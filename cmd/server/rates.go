package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/warp/wage-compliance/generic"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Inspect the rate document",
}

var ratesLookupFlags struct {
	age        int
	date       string
	apprentice bool
	start      string
}

var ratesLookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Print the required hourly rate for an age and pay date",
	RunE:  runRatesLookup,
}

var ratesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every rate period and band",
	RunE:  runRatesShow,
}

func init() {
	f := ratesLookupCmd.Flags()
	f.IntVar(&ratesLookupFlags.age, "age", 0, "worker age on the pay date (required)")
	f.StringVar(&ratesLookupFlags.date, "date", "", "pay date, YYYY-MM-DD (required)")
	f.BoolVar(&ratesLookupFlags.apprentice, "apprentice", false, "worker is an apprentice")
	f.StringVar(&ratesLookupFlags.start, "start", "", "apprenticeship start date, YYYY-MM-DD")

	_ = ratesLookupCmd.MarkFlagRequired("age")
	_ = ratesLookupCmd.MarkFlagRequired("date")

	ratesCmd.AddCommand(ratesLookupCmd)
	ratesCmd.AddCommand(ratesShowCmd)
}

func runRatesLookup(cmd *cobra.Command, _ []string) error {
	date, err := generic.ParseDate(ratesLookupFlags.date)
	if err != nil {
		return generic.NewValidationError("date", ratesLookupFlags.date, "must be YYYY-MM-DD")
	}
	var start *generic.TimePoint
	if ratesLookupFlags.start != "" {
		tp, err := generic.ParseDate(ratesLookupFlags.start)
		if err != nil {
			return generic.NewValidationError("start", ratesLookupFlags.start, "must be YYYY-MM-DD")
		}
		start = &tp
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	snap := a.loader.Current()
	lookup, err := snap.RequiredRate(ratesLookupFlags.age, date, ratesLookupFlags.apprentice, start)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Rate:      %s/h\n", lookup.HourlyRate.StringFixed(2))
	fmt.Fprintf(out, "Category:  %s (%s)\n", lookup.Category, lookup.BandKey)
	fmt.Fprintf(out, "Reason:    %s\n", lookup.Reason)
	fmt.Fprintf(out, "Period:    %s\n", lookup.Period)
	if limit, err := snap.AccommodationOffsetLimit(date); err == nil {
		fmt.Fprintf(out, "Accommodation limit: %s/day\n", limit.StringFixed(2))
	}
	fmt.Fprintf(out, "Rates:     %s\n", a.loader.Describe())
	return nil
}

func runRatesShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	snap := a.loader.Current()
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "PERIOD\tBAND\tAGES\tRATE\tCATEGORY\n")
	for _, p := range snap.Periods() {
		for _, b := range append(p.AgeBands(), p.ApprenticeBand()) {
			ages := fmt.Sprintf("%d+", b.MinAge)
			if b.MaxAge != nil {
				ages = fmt.Sprintf("%d-%d", b.MinAge, *b.MaxAge)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Range, b.Key, ages, b.HourlyRate.StringFixed(2), b.Category)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, r := range snap.AccommodationRules() {
		fmt.Fprintf(cmd.OutOrStdout(), "accommodation offset from %s: %s/day\n", r.EffectiveFrom, r.DailyLimit.StringFixed(2))
	}
	return nil
}
