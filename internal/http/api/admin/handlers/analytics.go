package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	dbutil "github.com/telecomsuite/subtrack/internal/db"
	"github.com/telecomsuite/subtrack/internal/models"
)

// AnalyticsHandler serves the admin analytics views.
type AnalyticsHandler struct {
	db *gorm.DB
}

// NewAnalyticsHandler constructs an AnalyticsHandler.
func NewAnalyticsHandler(db *gorm.DB) *AnalyticsHandler {
	return &AnalyticsHandler{db: db}
}

// dateCount is a scan target for group-by-day aggregates.
type dateCount struct {
	Bucket string `gorm:"column:bucket"`
	Count  int64  `gorm:"column:count"`
}

// planPopularity is a scan target for the plan popularity aggregate.
type planPopularity struct {
	PlanID   uint64  `gorm:"column:plan_id"`
	PlanName string  `gorm:"column:plan_name"`
	Count    int64   `gorm:"column:count"`
	Revenue  float64 `gorm:"column:revenue"`
}

// usageStats is a scan target for the usage aggregate.
type usageStats struct {
	Avg   float64 `gorm:"column:avg"`
	Max   float64 `gorm:"column:max"`
	Total float64 `gorm:"column:total"`
}

// Overview returns subscription counts by day, plan popularity, usage
// statistics, and the growth and conversion rates. Rates with an empty
// denominator come back as zero.
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	ctx := c.Request.Context()
	conn := h.db.WithContext(ctx)

	bucketExpr := dbutil.DateBucketExpr(h.db, "created_at")
	var byDate []dateCount
	if errScan := conn.Model(&models.Subscription{}).
		Select(bucketExpr + " AS bucket, COUNT(*) AS count").
		Group(bucketExpr).
		Order("bucket ASC").
		Scan(&byDate).Error; errScan != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "aggregate subscriptions failed"})
		return
	}
	datesOut := make([]gin.H, 0, len(byDate))
	for _, row := range byDate {
		datesOut = append(datesOut, gin.H{"date": row.Bucket, "count": row.Count})
	}

	var popularity []planPopularity
	if errScan := conn.Model(&models.Subscription{}).
		Select("subscriptions.plan_id AS plan_id, plans.name AS plan_name, COUNT(*) AS count, COALESCE(SUM(subscriptions.price_paid), 0) AS revenue").
		Joins("JOIN plans ON plans.id = subscriptions.plan_id").
		Group("subscriptions.plan_id, plans.name").
		Order("count DESC").
		Scan(&popularity).Error; errScan != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "aggregate plans failed"})
		return
	}
	plansOut := make([]gin.H, 0, len(popularity))
	for _, row := range popularity {
		plansOut = append(plansOut, gin.H{
			"plan_id":       row.PlanID,
			"plan_name":     row.PlanName,
			"subscriptions": row.Count,
			"revenue":       row.Revenue,
		})
	}

	var usage usageStats
	if errScan := conn.Model(&models.Usage{}).
		Select("COALESCE(AVG(data_used_gb), 0) AS avg, COALESCE(MAX(data_used_gb), 0) AS max, COALESCE(SUM(data_used_gb), 0) AS total").
		Scan(&usage).Error; errScan != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "aggregate usage failed"})
		return
	}

	now := time.Now().UTC()
	thisMonthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var totalUsers, newUsersThisMonth, activeSubs int64
	if errCount := conn.Model(&models.User{}).Count(&totalUsers).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count users failed"})
		return
	}
	if errCount := conn.Model(&models.User{}).
		Where("created_at >= ?", thisMonthStart).
		Count(&newUsersThisMonth).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count users failed"})
		return
	}
	if errCount := conn.Model(&models.Subscription{}).
		Where("status = ?", models.SubscriptionActive).
		Count(&activeSubs).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count subscriptions failed"})
		return
	}

	growthRate := 0.0
	conversionRate := 0.0
	if totalUsers > 0 {
		growthRate = float64(newUsersThisMonth) / float64(totalUsers) * 100
		conversionRate = float64(activeSubs) / float64(totalUsers) * 100
	}

	c.JSON(http.StatusOK, gin.H{
		"subscriptions_by_date": datesOut,
		"plan_popularity":       plansOut,
		"usage": gin.H{
			"average_gb": usage.Avg,
			"max_gb":     usage.Max,
			"total_gb":   usage.Total,
		},
		"growth_rate":     growthRate,
		"conversion_rate": conversionRate,
	})
}

// usageBucket describes one band of the usage distribution. Bounds are
// half-open so every user lands in exactly one band.
type usageBucket struct {
	Label string
	Low   float64
	High  float64 // Zero means unbounded.
}

var usageBuckets = []usageBucket{
	{Label: "0-10 GB", Low: 0, High: 10},
	{Label: "10-50 GB", Low: 10, High: 50},
	{Label: "50-100 GB", Low: 50, High: 100},
	{Label: "100+ GB", Low: 100},
}

// monthKey formats a month for trend rows.
func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

// Detailed returns the usage distribution across users and the trailing
// six-month revenue trend, oldest month first with empty months zero-filled.
func (h *AnalyticsHandler) Detailed(c *gin.Context) {
	ctx := c.Request.Context()
	conn := h.db.WithContext(ctx)

	type userTotal struct {
		UserID uint64  `gorm:"column:user_id"`
		Total  float64 `gorm:"column:total"`
	}
	var totals []userTotal
	if errScan := conn.Model(&models.Usage{}).
		Select("user_id, COALESCE(SUM(data_used_gb), 0) AS total").
		Group("user_id").
		Scan(&totals).Error; errScan != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "aggregate usage failed"})
		return
	}
	counts := make([]int64, len(usageBuckets))
	for _, row := range totals {
		for i, bucket := range usageBuckets {
			if row.Total >= bucket.Low && (bucket.High == 0 || row.Total < bucket.High) {
				counts[i]++
				break
			}
		}
	}
	distribution := make([]gin.H, 0, len(usageBuckets))
	for i, bucket := range usageBuckets {
		distribution = append(distribution, gin.H{"range": bucket.Label, "users": counts[i]})
	}

	now := time.Now().UTC()
	windowStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -5, 0)

	type subRow struct {
		CreatedAt time.Time
		PricePaid float64
	}
	var subs []subRow
	if errScan := conn.Model(&models.Subscription{}).
		Select("created_at, price_paid").
		Where("created_at >= ?", windowStart).
		Scan(&subs).Error; errScan != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "aggregate revenue failed"})
		return
	}

	revenueByMonth := map[string]float64{}
	countByMonth := map[string]int64{}
	for _, row := range subs {
		key := monthKey(row.CreatedAt.UTC())
		revenueByMonth[key] += row.PricePaid
		countByMonth[key]++
	}

	trend := make([]gin.H, 0, 6)
	for i := 0; i < 6; i++ {
		month := windowStart.AddDate(0, i, 0)
		key := monthKey(month)
		trend = append(trend, gin.H{
			"month":         key,
			"revenue":       revenueByMonth[key],
			"subscriptions": countByMonth[key],
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"usage_distribution": distribution,
		"revenue_trend":      trend,
	})
}
