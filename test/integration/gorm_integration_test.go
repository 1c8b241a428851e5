package integration

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"chatbot-billing-be/internal/entity"
	"chatbot-billing-be/internal/repository/unitofwork"
	"chatbot-billing-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err, "Failed to connect to DB")
	require.NoError(t, database.AutoMigrate(gormDB))

	ctx := context.Background()
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(ctx)

	assert.NotNil(t, uow.TransactionRepository())
	assert.NotNil(t, uow.CreditRepository())

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	require.NoError(t, sqlDB.Ping())
	t.Log("Successfully connected to DB and initialized UnitOfWork Factory")

	user := &entity.User{
		Email:    "test-integration-" + uuid.NewString() + "@example.com",
		FullName: "Integration Test User",
	}
	require.NoError(t, uow.UserRepository().Create(ctx, user))
	require.NotZero(t, user.Id)

	plan := &entity.Plan{
		Name:         "Integration Plan",
		Price:        decimal.NewFromInt(3000),
		Currency:     "INR",
		DurationDays: 30,
		TokenPerUnit: 10,
		IsActive:     true,
	}
	require.NoError(t, uow.PlanRepository().Create(ctx, plan))

	newTx := func() *entity.Transaction {
		return &entity.Transaction{
			UserId:          user.Id,
			PlanId:          &plan.Id,
			TransactionType: entity.TransactionTypePlan,
			Amount:          plan.Price,
			Currency:        plan.Currency,
			Provider:        entity.ProviderCashfree,
			Status:          entity.TransactionStatusCreated,
			OrderId:         "order_" + uuid.NewString(),
		}
	}

	t.Run("Duplicate order id is a unique violation", func(t *testing.T) {
		first := newTx()
		require.NoError(t, uow.TransactionRepository().Create(ctx, first))

		dup := newTx()
		dup.OrderId = first.OrderId
		err := uow.TransactionRepository().Create(ctx, dup)
		require.Error(t, err)
		assert.True(t, database.IsUniqueViolation(err))
	})

	t.Run("Rollback discards writes", func(t *testing.T) {
		tx := newTx()
		txUow := uowFactory.NewUnitOfWork(ctx)
		errAbort := errors.New("abort")

		err := unitofwork.WithinTransaction(ctx, txUow, func() error {
			if err := txUow.TransactionRepository().Create(ctx, tx); err != nil {
				return err
			}
			return errAbort
		})
		require.ErrorIs(t, err, errAbort)

		found, err := uow.TransactionRepository().FindByOrderID(ctx, tx.OrderId)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("Savepoint keeps earlier writes", func(t *testing.T) {
		kept := newTx()
		dropped := newTx()
		txUow := uowFactory.NewUnitOfWork(ctx)

		err := unitofwork.WithinTransaction(ctx, txUow, func() error {
			if err := txUow.TransactionRepository().Create(ctx, kept); err != nil {
				return err
			}
			if err := txUow.SavePoint("before_dropped"); err != nil {
				return err
			}
			if err := txUow.TransactionRepository().Create(ctx, dropped); err != nil {
				return err
			}
			return txUow.RollbackTo("before_dropped")
		})
		require.NoError(t, err)

		found, err := uow.TransactionRepository().FindByOrderID(ctx, kept.OrderId)
		require.NoError(t, err)
		assert.NotNil(t, found)

		found, err = uow.TransactionRepository().FindByOrderID(ctx, dropped.OrderId)
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}
