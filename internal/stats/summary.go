package stats

import "math"

// Summary aggregates final best fitness over repeated runs.
type Summary struct {
	Runs int     `json:"runs"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Max  float64 `json:"max"`
	Min  float64 `json:"min"`
}

func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	total := 0.0
	out := Summary{Runs: len(values), Max: values[0], Min: values[0]}
	for _, v := range values {
		total += v
		out.Max = math.Max(out.Max, v)
		out.Min = math.Min(out.Min, v)
	}
	out.Mean = total / float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - out.Mean
		variance += d * d
	}
	out.Std = math.Sqrt(variance / float64(len(values)))
	return out
}

// AverageSeries averages best-by-generation curves index by index. Shorter
// curves simply stop contributing once they run out.
func AverageSeries(lists [][]float64) []float64 {
	longest := 0
	for _, list := range lists {
		longest = max(longest, len(list))
	}
	out := make([]float64, longest)
	for i := range out {
		total, n := 0.0, 0
		for _, list := range lists {
			if i < len(list) {
				total += list[i]
				n++
			}
		}
		out[i] = total / float64(n)
	}
	return out
}
