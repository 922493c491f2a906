package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/suman7063/Restaurant-Managment-sub002/database/dbtest"
	"github.com/suman7063/Restaurant-Managment-sub002/kds"
	"github.com/suman7063/Restaurant-Managment-sub002/models"
	"github.com/suman7063/Restaurant-Managment-sub002/otp"
	"github.com/suman7063/Restaurant-Managment-sub002/policy"
	"github.com/suman7063/Restaurant-Managment-sub002/store"
)

var (
	owner    = policy.Actor{Role: policy.RoleOwner, TenantID: 1, IdentityID: "user:1"}
	admin    = policy.Actor{Role: policy.RoleAdmin, TenantID: 1, IdentityID: "user:2"}
	waiter   = policy.Actor{Role: policy.RoleWaiter, TenantID: 1, IdentityID: "user:3"}
	outsider = policy.Actor{Role: policy.RoleOwner, TenantID: 2, IdentityID: "user:9"}
)

type fixture struct {
	db       *gorm.DB
	store    *store.Store
	events   *kds.Recorder
	sessions *SessionManager
	joins    *JoinHandler
	ledger   *OrderLedger
	records  *RecordService
	table    models.Table
	thali    models.MenuItem
	lassi    models.MenuItem
}

// sequenceSource yields the given codes in order, then repeats the last.
func sequenceSource(values ...int64) otp.Source {
	i := 0
	return func() (int64, error) {
		v := values[len(values)-1]
		if i < len(values) {
			v = values[i]
		}
		i++
		return v, nil
	}
}

func newFixture(t *testing.T, opts ...otp.Option) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	require.NoError(t, db.Create(&models.Restaurant{ID: 1, Name: "Spice Route"}).Error)
	require.NoError(t, db.Create(&models.Restaurant{ID: 2, Name: "Elsewhere"}).Error)

	f := &fixture{db: db, store: store.New(db, policy.NewEngine()), events: &kds.Recorder{}}
	issuer := otp.NewIssuer(24*time.Hour, opts...)
	f.sessions = NewSessionManager(f.store, issuer, f.events, 5)
	f.joins = NewJoinHandler(f.store, f.events)
	f.ledger = NewOrderLedger(f.store, f.events)
	f.records = NewRecordService(f.store, f.events, WithOTPIssuer(issuer, 5))

	f.table = models.Table{RestaurantID: 1, TableNumber: "T1", Status: models.TableAvailable}
	require.NoError(t, db.Create(&f.table).Error)
	f.thali = models.MenuItem{RestaurantID: 1, Name: "Veg Thali", Category: "Mains", Price: decimal.NewFromInt(250), Available: true}
	require.NoError(t, db.Create(&f.thali).Error)
	f.lassi = models.MenuItem{RestaurantID: 1, Name: "Lassi", Category: "Drinks", Price: decimal.RequireFromString("80.50"), Available: true}
	require.NoError(t, db.Create(&f.lassi).Error)
	return f
}

func (f *fixture) addTable(t *testing.T, restaurantID uint, number string) models.Table {
	t.Helper()
	table := models.Table{RestaurantID: restaurantID, TableNumber: number, Status: models.TableAvailable}
	require.NoError(t, f.db.Create(&table).Error)
	return table
}

func customerActor(c *models.SessionCustomer) policy.Actor {
	return policy.Actor{Role: policy.RoleCustomer, TenantID: c.RestaurantID, IdentityID: c.Identity()}
}

func (f *fixture) storedSession(t *testing.T, id uint) models.Session {
	t.Helper()
	var s models.Session
	require.NoError(t, f.db.Unscoped().First(&s, id).Error)
	return s
}
