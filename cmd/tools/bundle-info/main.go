// Command bundle-info inspects a classifier bundle: schema, model
// version, feature length, and the ensemble's classifiers and weights.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/guardband-io/distress.engine/internal/classify"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <bundle.json>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	b, err := classify.LoadBundle(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "bundle-info: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("model_version:  %s\n", b.ModelVersion)
	fmt.Printf("feature_length: %d\n", b.FeatureLength)
	fmt.Printf("classifiers:    %d\n", len(b.Models))
	var weightSum float64
	for _, m := range b.Models {
		weightSum += m.Weight
	}
	for _, m := range b.Models {
		fmt.Printf("  %-16s weight=%.3f (%.1f%%)\n", m.Kind, m.Weight, 100*m.Weight/weightSum)
	}
}
