package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/straye-as/sales-assistant/internal/matcher"
	"github.com/straye-as/sales-assistant/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductService_SuggestPrice_TieredDiscount(t *testing.T) {
	s := newServices(t)
	s.seedCatalog()

	text, err := s.products.SuggestPrice(context.Background(), service.PricingRequest{
		Product:  "iphone 15",
		Customer: matcher.Query{Name: "Anh Tuấn"},
		Quantity: 3,
	})

	require.NoError(t, err)
	assert.Equal(t, "Giá niêm yết: 20,000,000 VNĐ\n"+
		"Giá ưu đãi: 18,000,000 VNĐ (Giảm 10.0% theo VIP)\n"+
		"Giá sau thuế (10%): 19,800,000 VNĐ\n"+
		"Số lượng: 3 chiếc\n"+
		"Tổng thanh toán: 59,400,000 VNĐ", text)
}

func TestProductService_SuggestPricing_BelowTier(t *testing.T) {
	s := newServices(t)
	s.seedCatalog()

	result, err := s.products.SuggestPricing(context.Background(), service.PricingRequest{
		Product:  "iPhone 15",
		Customer: matcher.Query{Name: "Anh Tuấn"},
		Quantity: 1,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(11), result.ProductID)
	assert.True(t, result.SuggestedPrice.Equal(decimal.NewFromInt(20000000)))
	assert.True(t, result.PriceWithTax.Equal(decimal.NewFromInt(22000000)))
	assert.Equal(t, "VIP", result.PricelistName)
	assert.Contains(t, result.Message, "Giá bán: 20,000,000 VNĐ")
}

func TestProductService_SuggestPricing_DefaultPricelist(t *testing.T) {
	s := newServices(t)
	s.erp.addTax(1, 10)
	s.erp.addProduct(11, "iPhone 15", 20000000, 50, 1)

	result, err := s.products.SuggestPricing(context.Background(), service.PricingRequest{Product: "iPhone", Quantity: 2})

	require.NoError(t, err)
	assert.Equal(t, "Giá niêm yết (Mặc định)", result.PricelistName)
	assert.True(t, result.SuggestedPrice.Equal(decimal.NewFromInt(20000000)))
	assert.Empty(t, s.erp.CallsTo("product.pricelist.item", "search_read"))
}

func TestProductService_SuggestPricing_InsufficientStock(t *testing.T) {
	s := newServices(t)
	s.seedCatalog()

	text, err := s.products.SuggestPrice(context.Background(), service.PricingRequest{Product: "iPhone 15", Quantity: 100})

	require.NoError(t, err)
	assert.Equal(t, "❌ Sản phẩm 'iPhone 15' không đủ tồn kho.\nYêu cầu: 100 | Có sẵn: 50", text)
}

func TestProductService_SuggestPricing_AmbiguousProduct(t *testing.T) {
	s := newServices(t)
	s.seedCatalog()
	s.erp.addProduct(12, "iPhone 15 Pro", 28000000, 0, 1)

	result, err := s.products.SuggestPricing(context.Background(), service.PricingRequest{Product: "iphone", Quantity: 1})

	require.NoError(t, err)
	assert.True(t, result.IsAmbiguous)
	assert.Contains(t, result.Message, "⚠️ Tìm thấy 2 sản phẩm với từ khóa 'iphone':")
	assert.Contains(t, result.Message, "1. iPhone 15 - 22,000,000 VNĐ (Kho: 50)")
	assert.Contains(t, result.Message, "2. iPhone 15 Pro - 30,800,000 VNĐ (⚠️ Hết hàng)")
}

func TestProductService_SuggestPricing_UnknownProduct(t *testing.T) {
	s := newServices(t)
	s.seedCatalog()

	text, err := s.products.SuggestPrice(context.Background(), service.PricingRequest{Product: "Nokia", Quantity: 1})

	require.NoError(t, err)
	assert.Equal(t, "❌ Không tìm thấy sản phẩm 'Nokia' trong hệ thống.", text)
}

func TestProductService_ResolveProduct_AccentInsensitive(t *testing.T) {
	s := newServices(t)
	s.seedCatalog()
	s.erp.addProduct(21, "Sữa Ông Thọ", 25000, 40, 1)
	s.erp.addProduct(22, "Sữa đặc Ông Thọ hộp giấy", 32000, 0, 1)

	product, err := s.products.ResolveProduct(context.Background(), "sua ong tho")
	require.NoError(t, err)
	assert.Equal(t, int64(21), product.ID)

	_, err = s.products.ResolveProduct(context.Background(), "ong tho")
	assert.Equal(t, service.ErrAmbiguous, service.Kind(err))
}

func TestProductService_SuggestPricing_MissingProduct(t *testing.T) {
	s := newServices(t)

	_, err := s.products.SuggestPricing(context.Background(), service.PricingRequest{Product: " "})

	assert.Equal(t, service.ErrMissingInput, service.Kind(err))
}

func TestProductService_ListProducts(t *testing.T) {
	s := newServices(t)
	s.seedCatalog()
	s.erp.addProduct(12, "Galaxy S24", 18000000, 5, 0)

	tests := []struct {
		name    string
		keyword string
		want    string
	}{
		{
			name: "catalogue",
			want: "Danh sách sản phẩm đang có:\n" +
				"- iPhone 15 - Giá: 22,000,000 VNĐ (Kho: 50)\n" +
				"- Galaxy S24 - Giá: 18,000,000 VNĐ (Kho: 5)",
		},
		{
			name:    "keyword",
			keyword: "galaxy",
			want:    "Tìm thấy 1 sản phẩm với từ khóa 'galaxy':\n- Galaxy S24 - Giá: 18,000,000 VNĐ (Kho: 5)",
		},
		{
			name:    "no match",
			keyword: "nokia",
			want:    "Không tìm thấy sản phẩm nào với từ khóa 'nokia'.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := s.products.ListProducts(context.Background(), tt.keyword)
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestProductService_EstimateRevenue(t *testing.T) {
	s := newServices(t)
	s.seedCatalog()

	revenue, err := s.products.EstimateRevenue(context.Background(), "iPhone", 2)
	require.NoError(t, err)
	require.NotNil(t, revenue)
	assert.True(t, revenue.Equal(decimal.NewFromInt(40000000)))

	none, err := s.products.EstimateRevenue(context.Background(), "Nokia", 2)
	require.NoError(t, err)
	assert.Nil(t, none)
}
