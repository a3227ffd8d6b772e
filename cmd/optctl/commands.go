package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/carstonks/options-engine/internal/catalog"
	"github.com/carstonks/options-engine/internal/contract"
	"github.com/carstonks/options-engine/internal/ledger"
	"github.com/carstonks/options-engine/internal/model"
	"github.com/carstonks/options-engine/internal/pricing"
)

var commands = []subcommands.Command{
	&carsCmd{},
	&quoteCmd{},
	&openCmd{},
	&closeCmd{},
	&portfolioCmd{},
	&resetCmd{},
}

var stdout io.Writer = os.Stdout

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, err)
	return subcommands.ExitFailure
}

// --- cars ---

type carsCmd struct {
	brand string
	year  int
	sort  string
}

func (*carsCmd) Name() string     { return "cars" }
func (*carsCmd) Synopsis() string { return "list the car market" }
func (*carsCmd) Usage() string {
	return `optctl cars [-brand <brand>] [-year <yyyy>] [-sort price-desc|price-asc|name|performance]
`
}

func (c *carsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.brand, "brand", "", "Only list cars of this brand.")
	f.IntVar(&c.year, "year", 0, "Only list cars of this model year.")
	f.StringVar(&c.sort, "sort", catalog.SortPriceDesc, "Sort order.")
}

func (c *carsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cars := catalog.Default().List(catalog.Filter{Brand: c.brand, Year: c.year, SortBy: c.sort})

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCAR\tYEAR\tPRICE\tCHANGE\tVOLATILITY")
	for _, car := range cars {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s%%\t%.1f%%\n",
			car.ID, car.Name, car.Year,
			ledger.FormatMoney(car.CurrentPrice),
			catalog.Performance(car).StringFixed(2),
			pricing.Volatility(car.PriceHistory)*100,
		)
	}
	tw.Flush()
	return subcommands.ExitSuccess
}

// --- quote / open ---

// tradeFlags are the parameters shared by quote and open.
type tradeFlags struct {
	car      string
	typ      string
	expiry   int
	target   int
	quantity int
}

func (t *tradeFlags) set(f *flag.FlagSet) {
	f.StringVar(&t.car, "car", "", "Car id, as listed by the cars command.")
	f.StringVar(&t.typ, "type", "CALL", "Option type: CALL or PUT.")
	f.IntVar(&t.expiry, "expiry", 3, fmt.Sprintf("Expiry in months %v.", contract.ExpiryMonths))
	f.IntVar(&t.target, "target", 5, fmt.Sprintf("Target percentage %v.", contract.TargetPercentages))
	f.IntVar(&t.quantity, "qty", 1, "Number of contracts.")
}

func (t *tradeFlags) params() (model.TradeParameters, error) {
	if t.car == "" {
		return model.TradeParameters{}, fmt.Errorf("-car is required")
	}
	return contract.ParseParams(strings.ToUpper(t.typ), strconv.Itoa(t.expiry), strconv.Itoa(t.target), strconv.Itoa(t.quantity))
}

type quoteCmd struct{ tradeFlags }

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "price an option without placing it" }
func (*quoteCmd) Usage() string {
	return `optctl quote -car <id> [-type CALL|PUT] [-expiry 1|3|6] [-target <pct>] [-qty <n>]
`
}

func (c *quoteCmd) SetFlags(f *flag.FlagSet) { c.set(f) }

func (c *quoteCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	p, err := c.params()
	if err != nil {
		return fail(err)
	}
	car, err := catalog.Default().Car(c.car)
	if err != nil {
		return fail(err)
	}

	q := pricing.NewQuote(car, p)
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Car\t%s\n", car.Name)
	fmt.Fprintf(tw, "Option\t%s %s, %d months\n", q.Type, contract.Describe(q.Type, q.TargetPercentage), q.ExpiryMonths)
	fmt.Fprintf(tw, "Strike\t%s\n", ledger.FormatMoney(q.StrikePrice))
	fmt.Fprintf(tw, "Premium\t%s x %d = %s\n", ledger.FormatMoney(q.PremiumPerContract), q.Quantity, ledger.FormatMoney(q.TotalPremium))
	fmt.Fprintf(tw, "Potential profit\t%s\n", ledger.FormatMoney(q.PotentialProfit))
	tw.Flush()
	return subcommands.ExitSuccess
}

type openCmd struct{ tradeFlags }

func (*openCmd) Name() string     { return "open" }
func (*openCmd) Synopsis() string { return "buy option contracts on a car" }
func (*openCmd) Usage() string {
	return `optctl open -car <id> [-type CALL|PUT] [-expiry 1|3|6] [-target <pct>] [-qty <n>]
`
}

func (c *openCmd) SetFlags(f *flag.FlagSet) { c.set(f) }

func (c *openCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	p, err := c.params()
	if err != nil {
		return fail(err)
	}

	svc, done, err := openService(ctx)
	if err != nil {
		return fail(err)
	}
	defer done()

	pos, err := svc.OpenPosition(ctx, c.car, p)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(stdout, "%s\tpremium %s\n", pos.ID, ledger.FormatMoney(pos.Premium))
	return subcommands.ExitSuccess
}

// --- close ---

type closeCmd struct{}

func (*closeCmd) Name() string             { return "close" }
func (*closeCmd) Synopsis() string         { return "sell an open position at its current value" }
func (*closeCmd) Usage() string            { return "optctl close <position-id>\n" }
func (*closeCmd) SetFlags(_ *flag.FlagSet) {}

func (*closeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "close takes exactly one position id")
		return subcommands.ExitUsageError
	}

	svc, done, err := openService(ctx)
	if err != nil {
		return fail(err)
	}
	defer done()

	pos, _, err := svc.ClosePosition(ctx, f.Arg(0))
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(stdout, "%s\tproceeds %s\n", pos.ID, ledger.FormatMoney(pos.CurrentValue))
	return subcommands.ExitSuccess
}

// --- portfolio ---

type portfolioCmd struct {
	json bool
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "show cash, positions and P/L" }
func (*portfolioCmd) Usage() string    { return "optctl portfolio [-json]\n" }

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "Print the portfolio as JSON.")
}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, done, err := openService(ctx)
	if err != nil {
		return fail(err)
	}
	defer done()

	p := svc.Portfolio()
	if c.json {
		if err := printJSON(stdout, p); err != nil {
			return fail(err)
		}
		return subcommands.ExitSuccess
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Cash\t%s\n", ledger.FormatMoney(p.Stats.CashBalance))
	fmt.Fprintf(tw, "Invested\t%s\n", ledger.FormatMoney(p.Aggregate.TotalInvested))
	fmt.Fprintf(tw, "Value\t%s\n", ledger.FormatMoney(p.Aggregate.TotalCurrentValue))
	fmt.Fprintf(tw, "P/L\t%s\n", ledger.FormatProfitLoss(p.Aggregate.TotalProfitLoss, p.Aggregate.TotalInvested))
	fmt.Fprintf(tw, "Active / trades\t%d / %d\n\n", p.Stats.ActivePositions, p.Stats.TotalTrades)

	fmt.Fprintln(tw, "ID\tCAR\tTYPE\tTARGET\tQTY\tEXPIRY\tPREMIUM\tVALUE\tP/L")
	for _, s := range p.Positions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			s.ID, s.CarID, s.Type, s.Target, s.Quantity,
			s.ExpiryDate.Format("2006-01-02"),
			ledger.FormatMoney(s.Premium), ledger.FormatMoney(s.CurrentValue), s.ProfitDisplay)
	}
	tw.Flush()
	return subcommands.ExitSuccess
}

// --- reset ---

type resetCmd struct{}

func (*resetCmd) Name() string             { return "reset" }
func (*resetCmd) Synopsis() string         { return "restore the demo account" }
func (*resetCmd) Usage() string            { return "optctl reset\n" }
func (*resetCmd) SetFlags(_ *flag.FlagSet) {}

func (*resetCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, done, err := openService(ctx)
	if err != nil {
		return fail(err)
	}
	defer done()

	if err := svc.Reset(ctx); err != nil {
		return fail(err)
	}
	fmt.Fprintln(stdout, "portfolio reset")
	return subcommands.ExitSuccess
}
