package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"medicrm_backend/platform/apperr"
)

func TestAddAppliesDefaultColor(t *testing.T) {
	s := New()
	tag, err := s.Add("Retorno", "")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if tag.Color != DefaultColor {
		t.Fatalf("expected default color %s, got %s", DefaultColor, tag.Color)
	}

	tag, err = s.Add("Urgente", "#EF4444")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if tag.Color != "#EF4444" {
		t.Fatalf("explicit color overridden: %s", tag.Color)
	}
}

func TestAddRejectsDuplicateName(t *testing.T) {
	s := New()
	if _, err := s.Add("VIP", ""); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	_, err := s.Add("vip", "")
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for duplicate name, got %v", err)
	}
}

func TestListPreservesInsertionOrder(t *testing.T) {
	s := New()
	names := []string{"Primeira Consulta", "Retorno", "Convênio", "Particular"}
	for _, name := range names {
		if _, err := s.Add(name, ""); err != nil {
			t.Fatalf("add %s failed: %v", name, err)
		}
	}

	tags := s.List()
	if len(tags) != len(names) {
		t.Fatalf("expected %d tags, got %d", len(names), len(tags))
	}
	for i, name := range names {
		if tags[i].Name != name {
			t.Fatalf("position %d: got %s, want %s", i, tags[i].Name, name)
		}
	}

	// Removing a middle element keeps the rest in order.
	if err := s.Remove(tags[1].ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	after := s.List()
	want := []string{"Primeira Consulta", "Convênio", "Particular"}
	for i, name := range want {
		if after[i].Name != name {
			t.Fatalf("after remove, position %d: got %s, want %s", i, after[i].Name, name)
		}
	}
}

func TestUpdateKeepsPosition(t *testing.T) {
	s := New()
	s.Add("A", "")
	b, _ := s.Add("B", "")
	s.Add("C", "")

	newName := "B renamed"
	if _, err := s.Update(b.ID, &newName, nil); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	tags := s.List()
	if tags[1].Name != "B renamed" {
		t.Fatalf("renamed tag moved: middle slot holds %s", tags[1].Name)
	}
}

func TestUpdateRejectsNameCollision(t *testing.T) {
	s := New()
	s.Add("A", "")
	b, _ := s.Add("B", "")

	collide := "a"
	_, err := s.Update(b.ID, &collide, nil)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestGetUnknownID(t *testing.T) {
	s := New()
	_, err := s.Get(uuid.New())
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConcurrentAdds(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Add(fmt.Sprintf("tag-%d", n), "")
		}(i)
	}
	wg.Wait()
	if s.Len() != 50 {
		t.Fatalf("expected 50 tags, got %d", s.Len())
	}
}
