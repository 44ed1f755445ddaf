package projection

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/terraskye/booking/internal/domain/accommodation"
)

func TestAccommodationProjector_Lifecycle(t *testing.T) {
	repo := NewMemoryAccommodationRepository()
	group := NewAccommodationProjector(repo).Processor()

	id := uuid.New()
	deliver(t, group, &accommodation.AccommodationCreated{
		AccommodationID: id,
		Name:            "Lakeside Cabin",
		Type:            accommodation.TypeRoom,
		MaxCapacity:     4,
	}, 1)

	model, err := repo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if model.Name != "Lakeside Cabin" || model.Type != accommodation.TypeRoom || model.MaxCapacity != 4 {
		t.Errorf("unexpected model %+v", model)
	}
	if !model.IsActive {
		t.Error("new accommodation should be active")
	}

	deliver(t, group, &accommodation.AccommodationUpdated{
		AccommodationID: id,
		Name:            "Lakeside Cabin",
		Type:            accommodation.TypeRoom,
		MaxCapacity:     6,
	}, 2)
	deliver(t, group, &accommodation.AccommodationDeactivated{AccommodationID: id}, 3)

	model, _ = repo.Get(context.Background(), id)
	if model.MaxCapacity != 6 {
		t.Errorf("max capacity = %d, want 6", model.MaxCapacity)
	}
	if model.IsActive {
		t.Error("should be inactive after deactivation")
	}

	deliver(t, group, &accommodation.AccommodationReactivated{AccommodationID: id}, 4)

	model, _ = repo.Get(context.Background(), id)
	if !model.IsActive {
		t.Error("should be active after reactivation")
	}
	if model.Version != 4 {
		t.Errorf("version = %d, want 4", model.Version)
	}
}

func TestMemoryAccommodationRepository_ListSortedByName(t *testing.T) {
	repo := NewMemoryAccommodationRepository()
	ctx := context.Background()

	for _, name := range []string{"Tent B", "Camper Spot 1", "Room 12"} {
		repo.Save(ctx, &AccommodationReadModel{ID: uuid.New(), Name: name})
	}

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d models, want 3", len(got))
	}
	for i, want := range []string{"Camper Spot 1", "Room 12", "Tent B"} {
		if got[i].Name != want {
			t.Errorf("position %d = %q, want %q", i, got[i].Name, want)
		}
	}
}
