package main

import (
	"fmt"
	"log"
	"os"

	"github.com/featurebasedb/medallion/csv"
	"github.com/featurebasedb/medallion/logger"
	"github.com/jaffee/commandeer/pflag"
)

func main() {
	m := csv.NewMain()
	if err := pflag.LoadEnv(m, "MEDALLION_", nil); err != nil {
		log.Fatal(err)
	}
	if m.DryRun {
		fmt.Printf("%+v\n", m)
		for _, cm := range m.ResolvedColumns() {
			fmt.Printf("%s <- %s\n", cm.Canonical, cm.Source)
		}
		return
	}

	if err := m.Run(); err != nil {
		log := m.Log()
		if log == nil {
			// if we fail before a logger was instantiated
			logger.NewStandardLogger(os.Stderr).Errorf("Error running command: %v", err)
			os.Exit(1)
		}
		log.Errorf("Error running command: %v", err)
		os.Exit(1)
	}
}
