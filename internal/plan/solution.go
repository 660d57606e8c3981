package plan

import (
	"encoding/json"
	"fmt"
	"io"
)

// Solution is the solver output: feasibility, the objective value and the
// throughput of every variable.
type Solution struct {
	Feasible  bool               `json:"feasible"`
	Bounded   bool               `json:"bounded"`
	Objective float64            `json:"result"`
	Values    map[string]float64 `json:"values"`
}

// DecodeSolution reads the solver's flat JSON object: the feasible, bounded
// and result keys plus one numeric key per non-zero variable.
func DecodeSolution(r io.Reader) (Solution, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Solution{}, fmt.Errorf("decoding solution: %w", err)
	}
	sol := Solution{Values: make(map[string]float64)}
	for key, msg := range raw {
		var err error
		switch key {
		case "feasible":
			err = json.Unmarshal(msg, &sol.Feasible)
		case "bounded":
			err = json.Unmarshal(msg, &sol.Bounded)
		case "result":
			err = json.Unmarshal(msg, &sol.Objective)
		default:
			var v float64
			err = json.Unmarshal(msg, &v)
			sol.Values[key] = v
		}
		if err != nil {
			return Solution{}, fmt.Errorf("decoding solution key %q: %w", key, err)
		}
	}
	return sol, nil
}
