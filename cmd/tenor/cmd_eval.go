package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tenor-lang/tenor/internal/facts"
	"github.com/tenor-lang/tenor/internal/flow"
	"github.com/tenor-lang/tenor/internal/predicate"
	"github.com/tenor-lang/tenor/internal/rules"
)

var (
	evalFactsPath string
	evalFlowID    string
	evalPersona   string
)

var evalCmd = &cobra.Command{
	Use:   "eval <root.tenor>",
	Short: "Evaluate rules (and optionally a flow) against a fact file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := loadIndex(args[0])
		if err != nil {
			return err
		}

		raw := map[string]interface{}{}
		if evalFactsPath != "" {
			data, err := os.ReadFile(evalFactsPath)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(data, &raw); err != nil {
				return fmt.Errorf("facts %s: %w", evalFactsPath, err)
			}
		}

		fs, err := facts.Assemble(idx, raw)
		if err != nil {
			return err
		}
		verdictList, err := rules.Infer(idx, fs)
		if err != nil {
			return err
		}

		if evalFlowID == "" {
			return printJSON(map[string]interface{}{"verdicts": verdictsWire(verdictList)})
		}

		verdicts := map[string]predicate.Verdict{}
		for _, v := range verdictList {
			verdicts[v.Type] = v
		}
		entities := flow.EntityStateMap{}
		for id, e := range idx.Entities {
			entities[flow.EntityKey{Entity: id, Instance: "_default"}] = e.Initial
		}
		before := map[flow.EntityKey]string{}
		for k, v := range entities {
			before[k] = v
		}

		it := flow.New(idx)
		it.MaxSteps = cfg.Flow.MaxSteps
		it.MaxDepth = cfg.Flow.MaxDepth
		res, err := it.Run(evalFlowID, predicate.Snapshot{Facts: fs, Verdicts: verdicts}, entities, evalPersona, nil)
		if err != nil {
			return err
		}

		path := make([]map[string]interface{}, 0, len(res.Steps))
		for _, s := range res.Steps {
			path = append(path, map[string]interface{}{
				"step_id": s.StepID, "step_type": s.StepType, "result": s.Result,
				"instance_bindings": s.InstanceBindings,
			})
		}
		var transitions []map[string]interface{}
		for k, after := range entities {
			if before[k] != after {
				transitions = append(transitions, map[string]interface{}{
					"entity": k.Entity, "instance": k.Instance, "from": before[k], "to": after,
				})
			}
		}
		return printJSON(map[string]interface{}{
			"flow_id":          evalFlowID,
			"outcome":          res.Outcome,
			"path":             path,
			"would_transition": transitions,
			"verdicts":         verdictsWire(verdictList),
		})
	},
}

func init() {
	evalCmd.Flags().StringVar(&evalFactsPath, "facts", "", "path to a JSON fact object")
	evalCmd.Flags().StringVar(&evalFlowID, "flow", "", "flow id to execute (rules-only when omitted)")
	evalCmd.Flags().StringVar(&evalPersona, "persona", "", "acting persona for flow execution")
}

func verdictsWire(list []predicate.Verdict) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(list))
	for _, v := range list {
		out = append(out, map[string]interface{}{
			"type":    v.Type,
			"payload": v.Payload,
			"provenance": map[string]interface{}{
				"rule":          v.Rule,
				"stratum":       v.Stratum,
				"facts_used":    v.FactsUsed,
				"verdicts_used": v.VerdictsUsed,
			},
		})
	}
	return out
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
