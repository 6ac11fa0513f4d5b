// Package canoncheck verifies that a query tree is already in canonical form.
//
// Check reports what Normalize would still change: non-canonical keys and
// clause tags, implicit field references, singleton and/or compounds,
// deprecated rows aggregations and entries the pruner would remove. A
// canonical query passes Check with no violations.
//
// Check is read-only and returns violations in a stable order.
package canoncheck
