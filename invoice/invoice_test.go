package invoice

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hindustanbills/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder() *models.Order {
	return &models.Order{
		ID:       "ord-1",
		Items:    []models.OrderItem{{Product: "p1", Name: "Parle-G", Quantity: 2, Price: 10, Total: 20}},
		Subtotal: 20,
		Tax:      3.6,
		Total:    23.6,
		Status:   models.OrderPaid,
		Customer: models.Customer{Name: "Asha"},
		PaymentInfo: &models.PaymentInfo{
			TransactionID: "TXN-1",
			Method:        "mock",
			PaidAt:        time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
		},
		CreatedAt: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestRenderProducesPDF(t *testing.T) {
	shop := &models.Shop{Name: "Sharma Stores", Address: "MG Road", Metadata: models.ShopMetadata{GSTNumber: "29ABCDE1234F1Z5"}}
	data, err := Render(sampleOrder(), shop, nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestSaveWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "invoices")
	name, err := Save(dir, sampleOrder(), nil, &models.User{Name: "Asha", Email: "asha@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "invoice-ord-1.pdf", name)

	info, err := os.Stat(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
