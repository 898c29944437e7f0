// Command staticlint is the project's multichecker. It runs a fixed set of
// go/analysis passes, ineffassign, nilerr, the noexit analyzer and the
// staticcheck analyzers named in config.json.
//
// config.json is looked up in STATICLINT_CONFIG, then next to the binary:
//
//	{"Staticcheck": ["SA1000", "SA4006"]}
//
// Usage:
//
//	staticlint ./...
package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/nilness"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/staticcheck"

	"github.com/patric-chuzhbe/moodjournal/cmd/staticlint/noexit"
)

const configFileName = `config.json`

// ConfigData lists the staticcheck analyzers to enable, e.g. "SA1000".
type ConfigData struct {
	Staticcheck []string
}

func configPath() (string, error) {
	if path := os.Getenv("STATICLINT_CONFIG"); path != "" {
		return path, nil
	}

	appfile, err := os.Executable()
	if err != nil {
		return "", err
	}

	return filepath.Join(filepath.Dir(appfile), configFileName), nil
}

func loadConfig() (*ConfigData, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &ConfigData{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func analyzers(cfg *ConfigData) []*analysis.Analyzer {
	checks := []*analysis.Analyzer{
		copylock.Analyzer,
		errorsas.Analyzer,
		httpresponse.Analyzer, // unchecked resty/http response errors
		loopclosure.Analyzer,
		lostcancel.Analyzer, // completion and shutdown timeouts
		nilness.Analyzer,
		printf.Analyzer,
		structtag.Analyzer, // json and bson tags on models
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		noexit.Analyzer,
	}

	enabled := make(map[string]bool, len(cfg.Staticcheck))
	for _, name := range cfg.Staticcheck {
		enabled[name] = true
	}

	for _, v := range staticcheck.Analyzers {
		if enabled[v.Analyzer.Name] {
			checks = append(checks, v.Analyzer)
		}
	}

	return checks
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	multichecker.Main(analyzers(cfg)...)
}
