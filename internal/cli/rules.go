package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/ppiankov/tdscan/internal/model"
	"github.com/ppiankov/tdscan/internal/rules"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	rulesListAll bool
	ruleFile     string
)

// rulesCmd represents the rules command
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage TDS/TCS detection rules",
	Long: `Manage the rule library used for detection.

Built-in rules ship with tdscan. Custom rules live in the overlay file
(rules.overlay_path, default ~/.tdscan/rules.yaml); an overlay rule replaces
every built-in rule with the same section.

Example:
  tdscan rules list
  tdscan rules show 194J
  tdscan rules add -f my-rule.yaml
  tdscan rules delete 194J`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := rulesStore()
		if err != nil {
			return err
		}

		var list []model.Rule
		if rulesListAll {
			if list, err = store.All(); err != nil {
				return err
			}
		} else {
			rs, _, err := store.Snapshot()
			if err != nil {
				return err
			}
			for _, r := range rs.Active() {
				list = append(list, *r)
			}
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SECTION\tTYPE\tTHRESHOLD\tPER BILL\tRATE %\tSEARCH\tPRIORITY\tSOURCE\tENABLED\tKEYWORDS")
		for _, r := range list {
			perBill := "-"
			if r.HasPerTransactionLimit() {
				perBill = r.ThresholdPerTransaction.String()
			}
			source := rules.SourceBuiltin
			if r.Custom {
				source = rules.SourceOverlay
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t%v\t%s\n",
				r.Section, r.Category, r.ThresholdCumulative.String(), perBill, r.Rate.String(),
				r.SearchTarget, r.Priority, source, r.Enabled, keywordList(r.Keywords, 4))
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "\n%d rule(s); overlay: %s\n", len(list), store.Path())
		return nil
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show <section>",
	Short: "Show a rule as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := rulesStore()
		if err != nil {
			return err
		}
		rule, err := store.Get(strings.TrimSpace(args[0]))
		if err != nil {
			return err
		}
		data, err := yaml.Marshal([]model.Rule{rule})
		if err != nil {
			return fmt.Errorf("marshal rule: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a custom rule (replaces an overlay rule with the same section)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := rulesStore()
		if err != nil {
			return err
		}
		rule, err := readRuleFile(ruleFile)
		if err != nil {
			return err
		}

		_, inBase, err := store.Exists(rule.Section)
		if err != nil {
			return err
		}
		replaced, err := store.Upsert(rule)
		if err != nil {
			return err
		}

		switch {
		case replaced:
			fmt.Printf("✓ Replaced custom rule %s\n", rule.Section)
		case inBase:
			fmt.Printf("✓ Added custom rule %s (overrides the built-in rule)\n", rule.Section)
		default:
			fmt.Printf("✓ Added custom rule %s\n", rule.Section)
		}
		return nil
	},
}

var rulesUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update an existing custom rule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := rulesStore()
		if err != nil {
			return err
		}
		rule, err := readRuleFile(ruleFile)
		if err != nil {
			return err
		}
		if err := store.Update(rule); err != nil {
			if errors.Is(err, rules.ErrRuleNotFound) {
				return fmt.Errorf("%w (use 'tdscan rules add' to create it)", err)
			}
			return err
		}
		fmt.Printf("✓ Updated custom rule %s\n", rule.Section)
		return nil
	},
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <section>",
	Short: "Delete a custom rule; the built-in rule, if any, becomes active again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := rulesStore()
		if err != nil {
			return err
		}
		section := strings.TrimSpace(args[0])
		if err := store.Delete(section); err != nil {
			if errors.Is(err, rules.ErrRuleNotFound) {
				if _, inBase, _ := store.Exists(section); inBase {
					return fmt.Errorf("%w (built-in rules cannot be deleted; add an overlay rule with enabled: false)", err)
				}
			}
			return err
		}
		fmt.Printf("✓ Deleted custom rule %s\n", section)
		return nil
	},
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check <section>",
	Short: "Report whether a section is defined",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := rulesStore()
		if err != nil {
			return err
		}
		section := strings.TrimSpace(args[0])
		inOverlay, inBase, err := store.Exists(section)
		if err != nil {
			return err
		}
		switch {
		case inOverlay && inBase:
			fmt.Printf("%s: custom rule (overrides built-in)\n", section)
		case inOverlay:
			fmt.Printf("%s: custom rule\n", section)
		case inBase:
			fmt.Printf("%s: built-in rule\n", section)
		default:
			return fmt.Errorf("%w: %s", rules.ErrRuleNotFound, section)
		}
		return nil
	},
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the rule library and overlay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := rulesStore()
		if err != nil {
			return err
		}
		rs, diags, err := store.Snapshot()
		if err != nil {
			return err
		}

		problems := 0
		for _, d := range diags {
			marker := "•"
			if d.Type == model.DiagnosticRuleConfiguration {
				marker = "✗"
				problems++
			}
			fmt.Printf("%s %s\n", marker, d.Description)
		}

		fmt.Printf("\n%d active rule(s), fingerprint %s\n", rs.Len(), rs.Fingerprint())
		if problems > 0 {
			return fmt.Errorf("%d rule(s) failed validation", problems)
		}
		if rs.Len() == 0 {
			return fmt.Errorf("no active rules")
		}
		fmt.Println("✓ Rules are valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd, rulesShowCmd, rulesAddCmd, rulesUpdateCmd,
		rulesDeleteCmd, rulesCheckCmd, rulesValidateCmd)

	rulesCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "custom rules overlay file (default: rules.overlay_path)")
	rulesListCmd.Flags().BoolVar(&rulesListAll, "all", false, "include disabled and overridden rules")
	for _, c := range []*cobra.Command{rulesAddCmd, rulesUpdateCmd} {
		c.Flags().StringVarP(&ruleFile, "file", "f", "", "rule definition (YAML or JSON)")
		_ = c.MarkFlagRequired("file")
	}
}

func rulesStore() (*rules.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if rulesPath != "" {
		cfg.Rules.OverlayPath = rulesPath
	}
	logger, _, err := setupLogger(cfg)
	if err != nil {
		return nil, err
	}
	return rules.NewStore(cfg.Rules.OverlayPath, rules.DefaultRules(), logger), nil
}

// readRuleFile decodes one rule from YAML or JSON, chosen by extension
func readRuleFile(path string) (model.Rule, error) {
	var rule model.Rule
	data, err := os.ReadFile(path)
	if err != nil {
		return rule, fmt.Errorf("read rule file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &rule)
	} else {
		err = yaml.Unmarshal(data, &rule)
	}
	if err != nil {
		return rule, fmt.Errorf("decode rule file %s: %w", path, err)
	}
	rule.Section = strings.TrimSpace(rule.Section)
	return rule, nil
}

func keywordList(keywords []string, n int) string {
	if len(keywords) <= n {
		return strings.Join(keywords, ", ")
	}
	return fmt.Sprintf("%s, +%d", strings.Join(keywords[:n], ", "), len(keywords)-n)
}
