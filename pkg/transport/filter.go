package transport

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/travigo/mobility-monitor/pkg/util"
)

type optionFilterEnvironment struct {
	Provider    string  `expr:"provider"`
	ShortName   string  `expr:"shortName"`
	Name        string  `expr:"name"`
	Product     int     `expr:"product"`
	Distance    float64 `expr:"distance"`
	Delayed     bool    `expr:"delayed"`
	Delay       int     `expr:"delay"`
	EnergyLevel float64 `expr:"energyLevel"`
}

// OptionFilter is a compiled boolean expression over option fields, eg. `energyLevel > 0.5`
type OptionFilter struct {
	source  string
	program *vm.Program
}

func CompileOptionFilter(source string) (*OptionFilter, error) {
	program, err := expr.Compile(source, expr.Env(optionFilterEnvironment{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile option filter %q: %w", source, err)
	}

	return &OptionFilter{source: source, program: program}, nil
}

func (f *OptionFilter) String() string {
	return f.source
}

func (f *OptionFilter) Match(option TransportOption) (bool, error) {
	output, err := expr.Run(f.program, optionFilterEnvironment{
		Provider:    option.Provider,
		ShortName:   option.ShortName,
		Name:        option.Name,
		Product:     option.Product,
		Distance:    option.Distance,
		Delayed:     option.Delayed,
		Delay:       option.Delay,
		EnergyLevel: option.EnergyLevel,
	})
	if err != nil {
		return false, err
	}

	return output.(bool), nil
}

// FilterEntries returns copies of the entries holding only the matching options.
// Entries left without options are kept, they simply render nothing.
func (f *OptionFilter) FilterEntries(entries []TransportData) ([]TransportData, error) {
	filtered := make([]TransportData, 0, len(entries))

	for _, entry := range entries {
		options := make([]TransportOption, len(entry.AvailableOptions))
		copy(options, entry.AvailableOptions)

		if err := util.InPlaceFilterErr(&options, f.Match); err != nil {
			return nil, fmt.Errorf("apply option filter %q: %w", f.source, err)
		}

		entry.AvailableOptions = options
		filtered = append(filtered, entry)
	}

	return filtered, nil
}
