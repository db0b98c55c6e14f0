// Package casegroup groups intake records into unique legal cases.
//
// Two records belong to the same case when they are connected, directly or
// transitively, by an explicit companion cross-reference or by a shared
// matter id. Grouping is a pure function of the input list; case ids are
// minted fresh on every call and must not be compared across calls.
package casegroup

import (
	"fmt"

	"github.com/sweet-james/adreport/internal/model"
)

// Resolve maps every record id to a synthetic case id. Records with no
// companion and no matter form singleton cases. Ids reachable only as a
// companion target still receive a case id so that the record on the other
// side of the link lands in the same component.
func Resolve(records []model.IntakeRecord) map[string]string {
	adj := make(map[string]map[string]struct{}, len(records))
	link := func(a, b string) {
		if adj[a] == nil {
			adj[a] = make(map[string]struct{})
		}
		if adj[b] == nil {
			adj[b] = make(map[string]struct{})
		}
		adj[a][b] = struct{}{}
		adj[b][a] = struct{}{}
	}

	// Companion edges are explicit and bidirectional. Only non-empty values
	// create edges, so records with blank ids never falsely merge.
	byMatter := make(map[string][]string)
	for _, r := range records {
		if r.CompanionID != "" {
			link(r.ID, r.CompanionID)
		}
		if r.MatterID != "" {
			byMatter[r.MatterID] = append(byMatter[r.MatterID], r.ID)
		}
	}

	// Records sharing a matter id form a clique; chaining each member to the
	// first is enough for connectivity.
	for _, ids := range byMatter {
		for i := 1; i < len(ids); i++ {
			link(ids[0], ids[i])
		}
	}

	assignments := make(map[string]string, len(records))
	visited := make(map[string]struct{}, len(records))
	counter := 0

	// BFS from each unvisited record in input order keeps case id
	// assignment deterministic for a fixed input ordering.
	for _, r := range records {
		if _, ok := visited[r.ID]; ok {
			continue
		}
		counter++
		caseID := fmt.Sprintf("CASE_%04d", counter)

		queue := []string{r.ID}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if _, ok := visited[cur]; ok {
				continue
			}
			visited[cur] = struct{}{}
			assignments[cur] = caseID
			for next := range adj[cur] {
				if _, ok := visited[next]; !ok {
					queue = append(queue, next)
				}
			}
		}
	}

	return assignments
}
