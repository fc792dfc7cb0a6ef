package setup

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/txtally/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes the
// result to config.gen.yaml.
func RunTUI() error {
	var (
		accountIndexStr string
		marketIDStr     string
		l1Address       string
		maxPagesStr     string
		depositTarget   string
		depositBand     string
		fxRateStr       string
		injectDeposit   bool
		binanceEnabled  bool
		bybitEnabled    bool
		confirm         bool
	)

	// defaults
	maxPagesStr = "50"
	depositTarget = "600"
	depositBand = "75"
	fxRateStr = "1"

	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("TXTALLY CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's point the tally at your account.\n"))

	fmt.Println(stepStyle.Render("STEP 1: ACCOUNT"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Lighter Account Index").
				Description("Numeric account index on the Lighter gateway").
				Value(&accountIndexStr).
				Validate(validateInt),
			huh.NewInput().
				Title("Market ID").
				Description("Primary market id (0 for all)").
				Value(&marketIDStr).
				Validate(validateOptionalInt),
			huh.NewInput().
				Title("L1 Address").
				Description("Optional 0x address; resolved from the API when empty").
				Value(&l1Address).
				Validate(func(s string) error {
					if s != "" && !ethcommon.IsHexAddress(s) {
						return fmt.Errorf("not a valid hex address")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("TXTALLY CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: FETCHING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Max Pages Per Endpoint").
				Value(&maxPagesStr).
				Validate(validateInt),
			huh.NewConfirm().
				Title("Include Binance history?").
				Description("Requires BINANCE_API_KEY / BINANCE_API_SECRET in env").
				Value(&binanceEnabled),
			huh.NewConfirm().
				Title("Include Bybit history?").
				Description("Requires BYBIT_API_KEY / BYBIT_API_SECRET in env").
				Value(&bybitEnabled),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("TXTALLY CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: RECONCILIATION"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Expected Initial Deposit").
				Description("Approximate first deposit in quote units, used for verification only").
				Value(&depositTarget).
				Validate(validateDecimal),
			huh.NewInput().
				Title("Deposit Band").
				Description("Tolerance around the expected deposit").
				Value(&depositBand).
				Validate(validateDecimal),
			huh.NewConfirm().
				Title("Inject inferred initial deposit into the timeline?").
				Value(&injectDeposit),
			huh.NewInput().
				Title("FX Rate").
				Description("Quote-to-reporting-currency rate (1 keeps USD)").
				Value(&fxRateStr).
				Validate(validateDecimal),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("TXTALLY CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Account Index: %s\nMarket ID: %s\nMax Pages: %s\nBinance: %v\nBybit: %v\nInject Deposit: %v\n",
		accountIndexStr, marketIDStr, maxPagesStr, binanceEnabled, bybitEnabled, injectDeposit,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	cfgTmp := config.ConfigTmp{
		AccountIndexStr:        accountIndexStr,
		MarketIDStr:            marketIDStr,
		L1Address:              l1Address,
		MaxPagesStr:            maxPagesStr,
		ApproxDepositTargetStr: depositTarget,
		ApproxDepositBandStr:   depositBand,
		FxRateStr:              fxRateStr,
		InjectInferredDeposit:  injectDeposit,
		BinanceEnabled:         binanceEnabled,
		BybitEnabled:           bybitEnabled,
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", filename)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func validateInt(s string) error {
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return fmt.Errorf("must be an integer")
	}
	return nil
}

func validateOptionalInt(s string) error {
	if s == "" {
		return nil
	}
	return validateInt(s)
}

func validateDecimal(s string) error {
	if _, err := decimal.NewFromString(s); err != nil {
		return fmt.Errorf("must be a valid number")
	}
	return nil
}
