package querysql

import (
	"sort"

	"github.com/roach88/consigne/internal/catalog"
	"github.com/roach88/consigne/internal/queryir"
)

// JoinPath returns the join clauses connecting target to every table in
// referenced, in emission order.
//
// Tables are taken from a queue and joined as soon as they share a foreign
// key with any table already joined; the rest go back to the end of the
// queue. A full pass that joins nothing triggers a breadth-first search of
// the FK graph for the shortest bridge from the joined set to a pending
// table, so deposit_lines reaches users through deposits without the caller
// naming deposits. Every iteration joins at least one table or returns, so
// the loop ends after at most n passes for n catalog tables.
func (c *Compiler) JoinPath(target string, referenced []string) ([]string, error) {
	if _, err := c.catalog.MustTable(target); err != nil {
		return nil, err
	}

	joined := []string{target}
	isJoined := map[string]bool{target: true}

	queue := pendingTables(target, referenced)
	var clauses []string

	for len(queue) > 0 {
		progressed := false
		for n := len(queue); n > 0; n-- {
			table := queue[0]
			queue = queue[1:]

			if isJoined[table] {
				continue
			}
			rel, ok := c.relationTo(joined, table)
			if !ok {
				queue = append(queue, table)
				continue
			}
			clauses = append(clauses, rel.JoinClause(table))
			joined = append(joined, table)
			isJoined[table] = true
			progressed = true
		}

		if len(queue) == 0 || progressed {
			continue
		}

		bridge := c.bridge(joined, isJoined, queue)
		if bridge == nil {
			return nil, queryir.NewUnjoinableSchemaError(target, sortedCopy(queue))
		}
		for _, hop := range bridge {
			clauses = append(clauses, hop.rel.JoinClause(hop.table))
			joined = append(joined, hop.table)
			isJoined[hop.table] = true
		}
	}

	return clauses, nil
}

// pendingTables dedupes referenced, drops the target and sorts the result
// so emission order does not depend on field order.
func pendingTables(target string, referenced []string) []string {
	seen := map[string]bool{target: true}
	var out []string
	for _, t := range referenced {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// relationTo finds the first joined table sharing an FK with table.
func (c *Compiler) relationTo(joined []string, table string) (catalog.FKRelation, bool) {
	for _, j := range joined {
		if rel, ok := c.catalog.Relation(j, table); ok {
			return rel, true
		}
	}
	return catalog.FKRelation{}, false
}

type hop struct {
	table string
	rel   catalog.FKRelation
}

// bridge searches breadth-first from the joined set and returns the hops
// leading to the nearest pending table, or nil when none is reachable.
func (c *Compiler) bridge(joined []string, isJoined map[string]bool, pending []string) []hop {
	wanted := make(map[string]bool, len(pending))
	for _, p := range pending {
		wanted[p] = true
	}

	parent := make(map[string]string)
	visited := make(map[string]bool, len(isJoined))
	for t := range isJoined {
		visited[t] = true
	}

	frontier := append([]string(nil), joined...)
	for len(frontier) > 0 {
		var next []string
		for _, from := range frontier {
			for _, to := range c.catalog.Neighbors(from) {
				if visited[to] {
					continue
				}
				visited[to] = true
				parent[to] = from
				if wanted[to] {
					return c.hops(to, parent, isJoined)
				}
				next = append(next, to)
			}
		}
		frontier = next
	}
	return nil
}

// hops walks parent links back to the joined set and returns the path
// forward, each hop joinable to the one before it.
func (c *Compiler) hops(end string, parent map[string]string, isJoined map[string]bool) []hop {
	var path []hop
	for t := end; !isJoined[t]; t = parent[t] {
		rel, _ := c.catalog.Relation(parent[t], t)
		path = append(path, hop{table: t, rel: rel})
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
