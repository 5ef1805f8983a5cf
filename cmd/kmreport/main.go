// Command kmreport renders a survival-analysis report for a clinical study
// dataset: cohort selection with an attrition table and flow diagram, a
// baseline characteristics table, Kaplan-Meier curves and proportional
// hazards summaries.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
