package analyze

import (
	"encoding/json"
	"sort"
)

// MarshalJSON emits the analysis-report wire shape:
// `analyses_run`, `s1_state_space` ... `s8_verdict_uniqueness`, and
// `findings: [{severity, analysis, message, provenance}]`. Struct-keyed
// maps are flattened into sorted entry lists so the output is
// deterministic and representable in JSON.
func (r *Report) MarshalJSON() ([]byte, error) {
	admissibility := make([]map[string]interface{}, 0, len(r.Admissibility))
	for k, ops := range r.Admissibility {
		sorted := append([]string(nil), ops...)
		sort.Strings(sorted)
		admissibility = append(admissibility, map[string]interface{}{
			"entity": k.Entity, "state": k.State, "persona": k.Persona, "operations": sorted,
		})
	}
	sort.Slice(admissibility, func(i, j int) bool {
		a, b := admissibility[i], admissibility[j]
		if a["entity"] != b["entity"] {
			return a["entity"].(string) < b["entity"].(string)
		}
		if a["state"] != b["state"] {
			return a["state"].(string) < b["state"].(string)
		}
		return a["persona"].(string) < b["persona"].(string)
	})

	authority := make([]map[string]interface{}, 0, len(r.Authority))
	for _, a := range r.Authority {
		authority = append(authority, map[string]interface{}{
			"persona": a.Persona, "entity": a.Entity, "from_state": a.FromState, "op": a.Op,
		})
	}

	findings := make([]map[string]interface{}, 0, len(r.Findings))
	for _, f := range r.Findings {
		findings = append(findings, map[string]interface{}{
			"severity": f.Severity,
			"analysis": f.Analysis,
			"message":  f.Message,
			"provenance": map[string]interface{}{
				"file": f.Prov.File, "line": f.Prov.Line,
			},
		})
	}

	return json.Marshal(map[string]interface{}{
		"analyses_run": []string{"S1", "S2", "S3a", "S4", "S5", "S6", "S7", "S8"},
		"s1_state_space": r.StateSpace,
		"s2_reachability": r.Reachability,
		"s3a_admissibility": admissibility,
		"s4_authority": authority,
		"s5_verdicts": map[string]interface{}{
			"verdict_types":      r.VerdictTypes,
			"operation_outcomes": r.OperationOutcomes,
		},
		"s6_flow_paths": map[string]interface{}{
			"paths":             r.FlowPaths,
			"unreachable_steps": r.UnreachableSteps,
		},
		"s7_complexity": map[string]interface{}{
			"flows": r.Complexity,
			"rules": r.RulePredicateComplexity,
		},
		"s8_verdict_uniqueness": map[string]interface{}{"verified": r.VerdictUnique},
		"findings":              findings,
	})
}
