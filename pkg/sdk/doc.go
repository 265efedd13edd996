// Package recall provides a Go client for the recalld HTTP API.
//
// The client wraps POST /v1/recall and exposes both the structured result
// and the raw injection format (one observation text per line):
//
//	client, _ := recall.New("http://localhost:7733", recall.WithAPIKey("..."))
//	res, _ := client.Recall(ctx, recall.Request{Query: "how do we paginate"})
//	for _, h := range res.Hits {
//	    fmt.Println(h.Score, h.Text)
//	}
//
//	lines, _ := client.RecallRaw(ctx, recall.Request{Query: "redis conventions"})
package recall
