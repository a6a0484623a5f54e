package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-compliance/internal/portal"
	"github.com/celerix-dev/celerix-compliance/pkg/query"
)

// parseRequest reads a stateless query from URL parameters:
//
//	q=text  eq[field]=v  any[field]=a,b  from[field]=t  to[field]=t
//	flag[field]=true  sort=field  dir=asc|desc  page=n  size=n
func parseRequest(c *gin.Context) (portal.Request, error) {
	q, err := parseQuery(c)
	if err != nil {
		return portal.Request{}, err
	}
	req := portal.Request{Query: q}
	if field := c.Query("sort"); field != "" {
		req.Sort = query.SortState{Field: field, Dir: query.ParseDirection(c.Query("dir"))}
	}
	if req.Page, err = intParam(c, "page"); err != nil {
		return portal.Request{}, err
	}
	if req.Size, err = intParam(c, "size"); err != nil {
		return portal.Request{}, err
	}
	return req, nil
}

func parseQuery(c *gin.Context) (query.Query, error) {
	q := query.Query{Search: c.Query("q")}

	if eq := c.QueryMap("eq"); len(eq) > 0 {
		q.Equals = eq
	}
	if anyOf := c.QueryMap("any"); len(anyOf) > 0 {
		q.AnyOf = make(map[string][]string, len(anyOf))
		for field, list := range anyOf {
			for _, v := range strings.Split(list, ",") {
				if v = strings.TrimSpace(v); v != "" {
					q.AnyOf[field] = append(q.AnyOf[field], v)
				}
			}
		}
	}

	from, to := c.QueryMap("from"), c.QueryMap("to")
	if len(from)+len(to) > 0 {
		q.Ranges = make(map[string]query.Range)
		for field, v := range from {
			t, err := parseTime(v)
			if err != nil {
				return query.Query{}, fmt.Errorf("%w: from[%s]: %w", errBadRequest, field, err)
			}
			r := q.Ranges[field]
			r.From = t
			q.Ranges[field] = r
		}
		for field, v := range to {
			t, err := parseTime(v)
			if err != nil {
				return query.Query{}, fmt.Errorf("%w: to[%s]: %w", errBadRequest, field, err)
			}
			r := q.Ranges[field]
			r.To = t
			q.Ranges[field] = r
		}
	}

	if flags := c.QueryMap("flag"); len(flags) > 0 {
		q.Flags = make(map[string]bool, len(flags))
		for field, v := range flags {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return query.Query{}, fmt.Errorf("%w: flag[%s]: %w", errBadRequest, field, err)
			}
			q.Flags[field] = b
		}
	}
	return q, nil
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, v)
}

func intParam(c *gin.Context, name string) (int, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", errBadRequest, name, err)
	}
	return n, nil
}
