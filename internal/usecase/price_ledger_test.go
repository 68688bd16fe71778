package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pantrylens/backend/internal/domain"
	"github.com/pantrylens/backend/internal/infrastructure/storage/memory"
)

func riceReport(price string) *domain.PriceReport {
	return &domain.PriceReport{
		ItemName: "Rice",
		Category: "grains",
		Store:    "StoreX",
		Price:    decPtr(price),
	}
}

func TestNewPriceLedger(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		ledger := NewPriceLedger(NewMockPriceRepository(), LedgerConfig{})
		if ledger.window != 30*24*time.Hour {
			t.Errorf("window = %v, want 720h", ledger.window)
		}
		if ledger.threshold != 3 {
			t.Errorf("threshold = %d, want 3", ledger.threshold)
		}
	})

	t.Run("keeps custom values", func(t *testing.T) {
		ledger := NewPriceLedger(NewMockPriceRepository(), LedgerConfig{Window: time.Hour, VerificationThreshold: 5})
		if ledger.window != time.Hour || ledger.threshold != 5 {
			t.Errorf("got window=%v threshold=%d", ledger.window, ledger.threshold)
		}
	})
}

func TestRecordPrice_Validation(t *testing.T) {
	ledger := NewPriceLedger(NewMockPriceRepository(), LedgerConfig{Now: fixedClock})
	ctx := context.Background()

	tests := []struct {
		name   string
		report *domain.PriceReport
		field  string
	}{
		{"nil report", nil, "report"},
		{"missing item name", &domain.PriceReport{Category: "c", Store: "s", Price: decPtr("1")}, "itemName"},
		{"blank item name", &domain.PriceReport{ItemName: "   ", Category: "c", Store: "s", Price: decPtr("1")}, "itemName"},
		{"missing category", &domain.PriceReport{ItemName: "Rice", Store: "s", Price: decPtr("1")}, "category"},
		{"missing store", &domain.PriceReport{ItemName: "Rice", Category: "c", Price: decPtr("1")}, "store"},
		{"missing price", &domain.PriceReport{ItemName: "Rice", Category: "c", Store: "s"}, "price"},
		{"negative price", &domain.PriceReport{ItemName: "Rice", Category: "c", Store: "s", Price: decPtr("-0.01")}, "price"},
		{"price finer than four places", &domain.PriceReport{ItemName: "Rice", Category: "c", Store: "s", Price: decPtr("1.23456")}, "price"},
		{"price too large", &domain.PriceReport{ItemName: "Rice", Category: "c", Store: "s", Price: decPtr("10000000000")}, "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.RecordPrice(ctx, tt.report)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
			var verr *domain.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("field = %v, want %s", verr, tt.field)
			}
		})
	}
}

func TestRecordPrice_ZeroPriceAccepted(t *testing.T) {
	ledger := NewPriceLedger(NewMockPriceRepository(), LedgerConfig{Now: fixedClock})

	obs, err := ledger.RecordPrice(context.Background(), riceReport("0"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !obs.Price.IsZero() {
		t.Errorf("price = %v, want 0", obs.Price)
	}
}

func TestRecordPrice_TrailingZerosAccepted(t *testing.T) {
	ledger := NewPriceLedger(NewMockPriceRepository(), LedgerConfig{Now: fixedClock})

	obs, err := ledger.RecordPrice(context.Background(), riceReport("4.8000000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !obs.Price.Equal(dec("4.8")) {
		t.Errorf("price = %v, want 4.8", obs.Price)
	}
}

func TestRecordPrice_FirstReport(t *testing.T) {
	ledger := NewPriceLedger(NewMockPriceRepository(), LedgerConfig{Now: fixedClock})

	obs, err := ledger.RecordPrice(context.Background(), riceReport("500"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.ID == "" {
		t.Error("expected an id to be assigned")
	}
	if obs.ReportCount != 1 || obs.Verified {
		t.Errorf("reportCount=%d verified=%v, want 1 false", obs.ReportCount, obs.Verified)
	}
	if obs.Unit != domain.DefaultUnit {
		t.Errorf("unit = %q, want %q", obs.Unit, domain.DefaultUnit)
	}
	if !obs.ObservedAt.Equal(testNow) || !obs.LastReportedAt.Equal(testNow) {
		t.Errorf("timestamps = %v / %v, want %v", obs.ObservedAt, obs.LastReportedAt, testNow)
	}
}

func TestRecordPrice_RepeatedReportsBecomeVerified(t *testing.T) {
	repo := NewMockPriceRepository()
	clock := testNow
	ledger := NewPriceLedger(repo, LedgerConfig{Now: func() time.Time { return clock }})
	ctx := context.Background()

	var obs *domain.PriceObservation
	var err error
	for i, price := range []string{"500", "505", "510"} {
		clock = testNow.Add(time.Duration(i) * time.Hour)
		obs, err = ledger.RecordPrice(ctx, riceReport(price))
		if err != nil {
			t.Fatalf("report %d: unexpected error: %v", i+1, err)
		}
		if want := i + 1; obs.ReportCount != want {
			t.Errorf("report %d: reportCount = %d, want %d", want, obs.ReportCount, want)
		}
		if wantVerified := i+1 >= 3; obs.Verified != wantVerified {
			t.Errorf("report %d: verified = %v, want %v", i+1, obs.Verified, wantVerified)
		}
	}

	if len(repo.observations) != 1 {
		t.Fatalf("stored observations = %d, want 1", len(repo.observations))
	}
	if !obs.Price.Equal(dec("510")) {
		t.Errorf("price = %v, want latest 510", obs.Price)
	}
	if !obs.ObservedAt.Equal(testNow) {
		t.Errorf("observedAt moved to %v", obs.ObservedAt)
	}
	if !obs.LastReportedAt.Equal(testNow.Add(2 * time.Hour)) {
		t.Errorf("lastReportedAt = %v", obs.LastReportedAt)
	}
}

func TestRecordPrice_MatchesIgnoringCase(t *testing.T) {
	repo := NewMockPriceRepository()
	ledger := NewPriceLedger(repo, LedgerConfig{Now: fixedClock})
	ctx := context.Background()

	if _, err := ledger.RecordPrice(ctx, riceReport("500")); err != nil {
		t.Fatal(err)
	}
	report := riceReport("490")
	report.ItemName = "  RICE "
	obs, err := ledger.RecordPrice(ctx, report)
	if err != nil {
		t.Fatal(err)
	}
	if obs.ReportCount != 2 {
		t.Errorf("reportCount = %d, want 2", obs.ReportCount)
	}
	if obs.ItemName != "Rice" {
		t.Errorf("itemName = %q, want first reported spelling", obs.ItemName)
	}
}

func TestRecordPrice_SeparateRecords(t *testing.T) {
	ctx := context.Background()

	t.Run("different store", func(t *testing.T) {
		repo := NewMockPriceRepository()
		ledger := NewPriceLedger(repo, LedgerConfig{Now: fixedClock})

		ledger.RecordPrice(ctx, riceReport("500"))
		other := riceReport("480")
		other.Store = "StoreY"
		obs, err := ledger.RecordPrice(ctx, other)
		if err != nil {
			t.Fatal(err)
		}
		if obs.ReportCount != 1 || len(repo.observations) != 2 {
			t.Errorf("reportCount=%d stored=%d, want 1 and 2", obs.ReportCount, len(repo.observations))
		}
	})

	t.Run("near-identical name is a different key", func(t *testing.T) {
		repo := NewMockPriceRepository()
		ledger := NewPriceLedger(repo, LedgerConfig{Now: fixedClock})

		ledger.RecordPrice(ctx, riceReport("500"))
		other := riceReport("700")
		other.ItemName = "Basmati Rice"
		obs, _ := ledger.RecordPrice(ctx, other)
		if obs.ReportCount != 1 || len(repo.observations) != 2 {
			t.Errorf("reportCount=%d stored=%d, want 1 and 2", obs.ReportCount, len(repo.observations))
		}
	})

	t.Run("previous record outside window", func(t *testing.T) {
		repo := NewMockPriceRepository()
		clock := testNow
		ledger := NewPriceLedger(repo, LedgerConfig{Now: func() time.Time { return clock }})

		ledger.RecordPrice(ctx, riceReport("500"))
		clock = testNow.Add(31 * 24 * time.Hour)
		obs, _ := ledger.RecordPrice(ctx, riceReport("520"))
		if obs.ReportCount != 1 || len(repo.observations) != 2 {
			t.Errorf("reportCount=%d stored=%d, want 1 and 2", obs.ReportCount, len(repo.observations))
		}
	})
}

func TestRecordPrice_StorageFailure(t *testing.T) {
	repo := NewMockPriceRepository()
	repo.upsertError = errors.New("disk full")
	ledger := NewPriceLedger(repo, LedgerConfig{Now: fixedClock})

	_, err := ledger.RecordPrice(context.Background(), riceReport("500"))
	if !errors.Is(err, domain.ErrStorageFailure) {
		t.Errorf("error = %v, want ErrStorageFailure", err)
	}

	repo.upsertError = context.Canceled
	_, err = ledger.RecordPrice(context.Background(), riceReport("500"))
	if !errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrStorageFailure) {
		t.Errorf("error = %v, want bare context.Canceled", err)
	}
}

func TestRecordPrice_ConcurrentReportsShareOneRecord(t *testing.T) {
	store := memory.NewPriceStore()
	ledger := NewPriceLedger(store, LedgerConfig{Now: fixedClock})
	ctx := context.Background()

	const reports = 40
	var wg sync.WaitGroup
	for i := 0; i < reports; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.RecordPrice(ctx, riceReport("500")); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	obs, err := store.FindByItemName(ctx, "rice", testNow.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(obs) != 1 {
		t.Fatalf("records = %d, want 1", len(obs))
	}
	if obs[0].ReportCount != reports {
		t.Errorf("reportCount = %d, want %d", obs[0].ReportCount, reports)
	}
}
