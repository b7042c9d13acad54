package lint

// Analyzer runs the registered rules against one model at a time.
type Analyzer struct {
	config *Config
}

// NewAnalyzer creates a new analyzer with optional configuration.
func NewAnalyzer(config *Config) *Analyzer {
	if config == nil {
		config = NewConfig()
	}
	return &Analyzer{config: config}
}

// Analyze runs every enabled rule against the context, in rule ID order.
func (a *Analyzer) Analyze(ctx *Context) []Diagnostic {
	if ctx == nil || ctx.Model == nil {
		return nil
	}

	var diagnostics []Diagnostic
	for _, rule := range GetAll() {
		if a.config.IsDisabled(rule.ID) {
			continue
		}

		opts := a.config.GetRuleOptions(rule.ID)
		autofix := Autofix(opts)

		diags := rule.Check(ctx, opts)
		for i := range diags {
			diags[i].RuleID = rule.ID
			diags[i].Severity = a.config.GetSeverity(rule.ID, rule.Severity)
			if diags[i].Model == "" {
				diags[i].Model = ctx.Model.ClassName
			}
			if !autofix {
				diags[i].Fixes = nil
			}
		}

		diagnostics = append(diagnostics, diags...)
	}

	return diagnostics
}
