package commands

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/datalog"
	"github.com/duynguyendang/symlog/pkg/factstore"
	"github.com/duynguyendang/symlog/pkg/program"
)

// FactsCmd manages a persistent fact store.
var FactsCmd = &cobra.Command{
	Use:   "facts",
	Short: "Manage a persistent fact store",
	Long: `Manage a BadgerDB fact store, such as the one a project manifest points at.

Examples:
  symlog facts import data/demo/facts base.dl     # Store the facts of base.dl
  symlog facts list data/demo/facts               # Print every stored fact
  symlog facts list data/demo/facts edge          # Print the facts of one relation
  symlog facts delete data/demo/facts 'edge("a", "b")'`,
}

var factsImportCmd = &cobra.Command{
	Use:   "import <store-dir> <fact-file>...",
	Short: "Store the facts of Datalog files",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runFactsImport,
}

var factsListCmd = &cobra.Command{
	Use:   "list <store-dir> [relation]",
	Short: "Print stored facts",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runFactsList,
}

var factsDeleteCmd = &cobra.Command{
	Use:   "delete <store-dir> <fact>...",
	Short: "Remove stored facts",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runFactsDelete,
}

var storeProfile string

func init() {
	FactsCmd.AddCommand(factsImportCmd, factsListCmd, factsDeleteCmd)
	FactsCmd.PersistentFlags().StringVar(&storeProfile, "profile", "Default", "Store resource profile: Default or Low-Mem")
}

func openStore(dir string, readOnly bool) (*factstore.Store, error) {
	cfg := factstore.DefaultConfig(dir)
	cfg.Profile = storeProfile
	cfg.ReadOnly = readOnly
	return factstore.Open(cfg)
}

func runFactsImport(cmd *cobra.Command, args []string) error {
	var facts []program.Fact
	for _, path := range args[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		p, err := datalog.ParseProgram(string(data))
		if err != nil {
			return errors.Wrapf(err, "parse %s", path)
		}
		if len(p.Rules) > 0 {
			return errors.Wrapf(errors.ErrInvalidInput, "%s contains %d rules; only facts can be stored", path, len(p.Rules))
		}
		facts = append(facts, p.Facts...)
	}

	store, err := openStore(args[0], false)
	if err != nil {
		return err
	}
	defer store.Close()

	added, err := store.Put(facts...)
	if err != nil {
		return err
	}
	total, err := store.Count()
	if err != nil {
		return err
	}
	pterm.Success.Printfln("stored %d facts (%d new, %d total)", len(facts), added, total)
	return nil
}

func runFactsList(cmd *cobra.Command, args []string) error {
	store, err := openStore(args[0], true)
	if err != nil {
		return err
	}
	defer store.Close()

	rel := ""
	if len(args) == 2 {
		rel = args[1]
	}
	ctx, cancel := signalContext()
	defer cancel()

	n := 0
	for f, err := range store.Scan(ctx, rel) {
		if err != nil {
			return err
		}
		pterm.Println(f.String())
		n++
	}
	pterm.Debug.Printfln("%d facts", n)
	return nil
}

func runFactsDelete(cmd *cobra.Command, args []string) error {
	facts := make([]program.Fact, 0, len(args)-1)
	for _, s := range args[1:] {
		f, err := datalog.ParseFact(s)
		if err != nil {
			return err
		}
		facts = append(facts, f)
	}

	store, err := openStore(args[0], false)
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.Delete(facts...)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("removed %d of %d facts", removed, len(facts))
	return nil
}
