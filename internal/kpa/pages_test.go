package kpa

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alfredjeanlab/kpatap/internal/model"
)

func TestPager_Terminates(t *testing.T) {
	p := NewPager()

	// page 1 (implicit), last_page=3
	if p.Token() != 0 || p.Page() != 1 {
		t.Fatalf("initial token=%d page=%d, want 0/1", p.Token(), p.Page())
	}
	p.Observe(3)
	if p.Done() || p.Page() != 2 {
		t.Fatalf("after page 1: done=%v page=%d", p.Done(), p.Page())
	}
	p.Observe(3)
	if p.Done() || p.Page() != 3 {
		t.Fatalf("after page 2: done=%v page=%d", p.Done(), p.Page())
	}
	p.Observe(3)
	if !p.Done() {
		t.Fatal("after page 3 the sequence must terminate; a 4th page must never be requested")
	}
}

func TestPager_SinglePage(t *testing.T) {
	p := NewPager()
	p.Observe(1)
	if !p.Done() {
		t.Error("last_page=1 must terminate after the first page")
	}

	p = NewPager()
	p.Observe(0)
	if !p.Done() {
		t.Error("missing paging info must terminate after the first page")
	}
}

func TestEachResponsePage(t *testing.T) {
	h := &scriptedHandler{responses: []canned{
		{body: `{"ok":true,"paging":{"last_page":3},"responses":[{"id":1,"created":10,"updated":20}]}`},
		{body: `{"ok":true,"paging":{"last_page":3},"responses":[{"id":2,"created":11,"updated":21}]}`},
		{body: `{"ok":true,"paging":{"last_page":3},"responses":[{"id":3,"created":12,"updated":22}]}`},
	}}
	c, _ := newTestClient(t, h)

	var ids []int64
	err := c.EachResponsePage(context.Background(), "f1", 0, func(page []model.ResponseSummary) error {
		for _, s := range page {
			ids = append(ids, s.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("EachResponsePage: %v", err)
	}

	if h.calls != 3 {
		t.Fatalf("calls = %d, want 3 (a 4th page must never be requested)", h.calls)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Errorf("ids = %v, want [1 2 3]", ids)
	}

	// First request omits the page parameter; later ones carry 2 and 3.
	for i, wantPage := range []any{nil, float64(2), float64(3)} {
		var body map[string]any
		if err := json.Unmarshal([]byte(h.bodies[i]), &body); err != nil {
			t.Fatalf("request %d body: %v", i, err)
		}
		if got := body["page"]; got != wantPage {
			t.Errorf("request %d page = %v, want %v", i, got, wantPage)
		}
		if body["form_id"] != "f1" {
			t.Errorf("request %d form_id = %v", i, body["form_id"])
		}
	}
}

func TestEachResponsePage_UpdatedAfter(t *testing.T) {
	h := &scriptedHandler{responses: []canned{
		{body: `{"ok":true,"paging":{"last_page":1},"responses":[]}`},
	}}
	c, _ := newTestClient(t, h)

	err := c.EachResponsePage(context.Background(), "f1", 1700000000000, func(page []model.ResponseSummary) error {
		return nil
	})
	if err != nil {
		t.Fatalf("EachResponsePage: %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(h.bodies[0]), &body); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if body["updated_after"] != float64(1700000000000) {
		t.Errorf("updated_after = %v, want 1700000000000", body["updated_after"])
	}
}
