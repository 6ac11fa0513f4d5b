package canoncheck

import (
	"fmt"

	"github.com/roach88/qnorm/internal/ir"
	"github.com/roach88/qnorm/internal/normalize"
	"github.com/roach88/qnorm/internal/token"
)

// Result contains the canonical-form analysis of a query.
type Result struct {
	// IsCanonical is true when normalizing the query would not change it.
	IsCanonical bool

	// Violations lists each reason the query is not canonical, prefixed with
	// the path of the offending node. Empty when IsCanonical is true.
	Violations []string
}

// Check walks v and reports every canonical-form violation.
//
// Check is a pure function with no side effects.
func Check(v ir.IRValue) Result {
	c := &checker{
		violations: []string{},
	}
	c.checkRoot(v)

	return Result{
		IsCanonical: len(c.violations) == 0,
		Violations:  c.violations,
	}
}

// checker accumulates violations during traversal.
type checker struct {
	violations []string
}

func (c *checker) addViolation(path normalize.Path, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if len(path) > 0 {
		msg = path.String() + ": " + msg
	}
	c.violations = append(c.violations, msg)
}

func (c *checker) checkRoot(v ir.IRValue) {
	root, ok := v.(ir.IRObject)
	if !ok {
		c.addViolation(nil, "query must be a mapping, got %T", v)
		return
	}

	if typ, ok := root["type"]; ok {
		if _, isToken := typ.(ir.IRToken); !isToken && !ir.IsNull(typ) {
			c.addViolation(normalize.Path{"type"}, "query type %v is not a token", typ)
		}
	}

	c.checkObject(root, nil)

	if inner, ok := root["query"].(ir.IRObject); ok {
		c.checkInner(inner, normalize.Path{"query"})
	}
}

// checkValue applies the generic rules: canonical keys, token heads and no
// prunable entries.
func (c *checker) checkValue(v ir.IRValue, path normalize.Path) {
	switch val := v.(type) {
	case ir.IRObject:
		c.checkObject(val, path)
	case ir.IRArray:
		c.checkArray(val, path)
	}
}

func (c *checker) checkObject(obj ir.IRObject, path normalize.Path) {
	expressionNames := isExpressions(path)
	for _, key := range obj.SortedKeys() {
		child := path.Key(key)
		if !expressionNames && !token.IsCanonical(key) {
			c.addViolation(child, "key %q is not a canonical token", key)
		}
		if normalize.Empty(obj[key]) {
			c.addViolation(child, "empty entry would be pruned")
			continue
		}
		c.checkValue(obj[key], child)
	}
}

func (c *checker) checkArray(arr ir.IRArray, path normalize.Path) {
	if len(arr) > 0 {
		if head, ok := ir.AtomString(arr[0]); ok {
			if _, isToken := arr[0].(ir.IRToken); !isToken {
				c.addViolation(path, "clause tag %q is a string, not a token", head)
			} else if !token.IsCanonical(head) {
				c.addViolation(path, "clause tag %q is not canonical", head)
			}
		}
	}
	for i, elem := range arr {
		c.checkValue(elem, path.Index(i))
	}
}

// checkInner applies the clause family rules to the inner query.
func (c *checker) checkInner(inner ir.IRObject, path normalize.Path) {
	if agg, ok := inner["aggregation"]; ok && !ir.IsNull(agg) {
		c.checkAggregation(agg, path.Key("aggregation"))
	}
	for _, key := range []string{"breakout", "fields"} {
		if list, ok := inner[key]; ok && !ir.IsNull(list) {
			c.checkFieldList(list, path.Key(key))
		}
	}
	if filter, ok := inner["filter"]; ok && !ir.IsNull(filter) {
		c.checkFilter(filter, path.Key("filter"))
	}
}

func (c *checker) checkAggregation(v ir.IRValue, path normalize.Path) {
	list, ok := v.(ir.IRArray)
	if !ok || isClause(v) {
		c.addViolation(path, "aggregation is not a list of clauses")
		return
	}
	for i, sub := range list {
		if ir.IsNull(sub) {
			continue
		}
		clause, ok := sub.(ir.IRArray)
		if !ok || len(clause) == 0 {
			c.addViolation(path.Index(i), "aggregation entry is not a clause")
			continue
		}
		if tag, _ := ir.AtomString(clause[0]); token.Canonicalize(tag) == "rows" {
			c.addViolation(path.Index(i), "deprecated rows aggregation")
		}
		if len(clause) > 2 {
			c.addViolation(path.Index(i), "aggregation has %d arguments, expected at most 1", len(clause)-1)
		}
		if len(clause) >= 2 {
			c.checkFieldRef(clause[1], path.Index(i).Index(1))
		}
	}
}

func (c *checker) checkFieldList(v ir.IRValue, path normalize.Path) {
	list, ok := v.(ir.IRArray)
	if !ok || isClause(v) {
		c.addViolation(path, "not a list of field references")
		return
	}
	for i, f := range list {
		c.checkFieldRef(f, path.Index(i))
	}
}

func (c *checker) checkFilter(v ir.IRValue, path normalize.Path) {
	clause, ok := v.(ir.IRArray)
	if !ok || len(clause) == 0 {
		c.addViolation(path, "filter is not a clause")
		return
	}
	head, ok := ir.AtomString(clause[0])
	if !ok {
		c.addViolation(path, "filter clause has no operator")
		return
	}
	tag := token.Canonicalize(head)
	args := clause[1:]

	switch {
	case normalize.IsCompoundOperator(tag):
		if len(args) == 1 && tag != "not" {
			c.addViolation(path, "%q with a single argument", tag)
		}
		for i, arg := range args {
			c.checkFilter(arg, path.Index(i+1))
		}
	case normalize.IsComparisonOperator(tag):
		if len(args) > 0 {
			c.checkFieldRef(args[0], path.Index(1))
		}
	}
}

func (c *checker) checkFieldRef(v ir.IRValue, path normalize.Path) {
	if id, ok := v.(ir.IRInt); ok {
		c.addViolation(path, "implicit field reference %d", int64(id))
	}
}

func isClause(v ir.IRValue) bool {
	_, ok := ir.ClauseHead(v)
	return ok
}

// isExpressions reports whether path is query.expressions, whose keys are
// user-chosen names.
func isExpressions(path normalize.Path) bool {
	return len(path) == 2 && path[0] == "query" && path[1] == "expressions"
}
