package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/Emriqurrizal/MyFinny-End-to-End-Data-Pipeline-Project-for-Personal-Financial-Analysis/pkg/config"
	"github.com/Emriqurrizal/MyFinny-End-to-End-Data-Pipeline-Project-for-Personal-Financial-Analysis/pkg/csvimporter"
	"github.com/Emriqurrizal/MyFinny-End-to-End-Data-Pipeline-Project-for-Personal-Financial-Analysis/pkg/filemanager"
	"github.com/Emriqurrizal/MyFinny-End-to-End-Data-Pipeline-Project-for-Personal-Financial-Analysis/pkg/financialimporter"
)

// Lists the Spending Category and Source labels found in pending files that
// are not part of the fixed code lists. Those rows are loaded with code 0.
func main() {
	configFile := flag.String("config", "./config.yml", "configuration file")
	secretsFile := flag.String("secrets", "./secrets.ejson", "ejson secrets file")
	flag.Parse()

	err := config.ReadConfig("FINANCE_ETL_CONFIG", *configFile, *secretsFile)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	etlConfig := config.CurrentETLConfig()
	files, err := filemanager.New(etlConfig.RawDir, etlConfig.ArchiveDir, etlConfig.FilePattern).ListPending()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	expenses := map[string]struct{}{}
	sources := map[string]struct{}{}

	for _, file := range files {
		table, err := csvimporter.Extract(file)
		if err != nil {
			fmt.Println(err)
			continue
		}

		for _, record := range table.Records() {
			category, _ := record.Category()
			switch category {
			case "Spending":
				if label, ok := record.SpendingCategory(); ok {
					expenses[label] = struct{}{}
				}
			case "Income":
				if label, ok := record.Source(); ok {
					sources[label] = struct{}{}
				}
			}
		}
	}

	PrettyPrint("Spending Category", difference(keys(expenses), financialimporter.ExpenseLabels()))
	PrettyPrint("Source", difference(keys(sources), financialimporter.SourceLabels()))
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// difference returns the strings of slice1 missing from slice2.
func difference(slice1 []string, slice2 []string) []string {
	known := make(map[string]struct{}, len(slice2))
	for _, s := range slice2 {
		known[s] = struct{}{}
	}

	diff := []string{}
	for _, s := range slice1 {
		if _, ok := known[s]; !ok {
			diff = append(diff, s)
		}
	}

	return diff
}

func PrettyPrint(prefix string, v interface{}) (err error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err == nil {
		fmt.Println(prefix + ": " + string(b))
	}
	return
}
