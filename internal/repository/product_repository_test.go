package repository

import (
	"testing"

	"github.com/leafbox-next/internal/models"
)

func TestProductRepositoryLookups(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewProductRepository(db)

	monstera := &models.Product{Name: "Monstera Deliciosa", Price: models.NewMoneyFromInt(650), IsActive: true}
	retired := &models.Product{Name: "Retired Cactus", Price: models.NewMoneyFromInt(120)}
	for _, p := range []*models.Product{monstera, retired} {
		if err := repo.Create(p); err != nil {
			t.Fatalf("create %s failed: %v", p.Name, err)
		}
	}
	// zero bools are replaced by the column default on insert
	if err := db.Model(retired).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	rows, err := repo.ListByIDs([]uint{retired.ID, monstera.ID, 9999})
	if err != nil {
		t.Fatalf("list by ids failed: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != monstera.ID || rows[1].IsActive {
		t.Fatalf("expected both known products, inactive one included: %+v", rows)
	}
	if rows, err := repo.ListByIDs(nil); err != nil || len(rows) != 0 {
		t.Fatalf("empty ids should return nothing, rows=%v err=%v", rows, err)
	}

	found, err := repo.GetByName(" Monstera Deliciosa ")
	if err != nil || found == nil || found.ID != monstera.ID {
		t.Fatalf("get by name failed: %+v err=%v", found, err)
	}
	missing, err := repo.GetByName("Fiddle Leaf Fig")
	if err != nil || missing != nil {
		t.Fatalf("missing product should be nil,nil got %+v err=%v", missing, err)
	}
}
