// Package harness runs normalization scenarios as executable contract tests.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	strict: false
//	cases:
//	  - name: bare_aggregation
//	    input:
//	      type: query
//	      query: { aggregation: count }
//	    expect:
//	      type: query
//	      query: { aggregation: [[count]] }
//	  - name: empty_filter
//	    input:
//	      query: { filter: [] }
//	    expect_error:
//	      code: MALFORMED_QUERY
//	      path: query.filter
//	assertions:
//	  - type: canonical
//	  - type: equivalent
//	    cases: [bare_aggregation, listed_aggregation]
//
// Case inputs and expectations are decoded with decode.FromYAMLNode, so YAML
// timestamps stay opaque and integers stay distinct from decimals. Expected
// trees are compared by canonical JSON, which does not distinguish tokens
// from strings.
//
// # Assertion Types
//
//   - canonical: every successful output passes canoncheck.Check
//   - idempotent: normalizing each output again changes nothing
//   - equivalent: the listed cases normalize to the same query
//   - distinct: the listed cases normalize to pairwise different queries
//   - record_count: the recorder holds exactly N records afterwards
//
// # Deterministic Testing
//
// Cases run sequentially through a pipeline.Pipeline with a deterministic
// clock (testutil.DeterministicClock), sequential request IDs
// (testutil.SequentialIDGenerator) and an in-memory recorder, so identical
// inputs within a scenario are served from the recorder. The resulting
// trace is stable across runs and suitable for golden snapshot comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/aggregation.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
