package workflow

import (
	"context"
	"strings"

	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// CreateClient registers a client and allocates its code in the same transaction.
func (e *Engine) CreateClient(ctx context.Context, actor models.Actor, input models.NewClient) (*models.Client, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.ClientType.IsValid() {
		return nil, utils.ValidationFailed("client_type", "client type must be Individual or Corporate")
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, utils.ValidationFailed("email", "invalid email address")
	}
	phone := ""
	if strings.TrimSpace(input.Phone) != "" {
		normalized, err := utils.NormalizePhoneNumber(input.Phone, utils.CountryCode)
		if err != nil {
			return nil, utils.ValidationFailed("phone", "invalid phone number")
		}
		phone = normalized
	}

	var client models.Client
	err := e.run(ctx, "CreateClient", "", []attribute.KeyValue{attribute.String("client.type", string(input.ClientType))}, func(tx *gorm.DB) error {
		code, err := e.Codes.WithTx(tx).NextClientCode(ctx, input.ClientType)
		if err != nil {
			return err
		}
		client = models.Client{
			ClientCode: code,
			ClientType: input.ClientType,
			Name:       input.Name,
			Email:      input.Email,
			Phone:      phone,
			Address:    input.Address,
			CreatedBy:  actor.UserId,
		}
		if err := tx.Create(&client).Error; err != nil {
			return err
		}
		return models.RecordLifecycleEvent(ctx, tx, models.EventClientCreated, models.ReferenceTypeClient, client.ID, actor.UserId, e.now(), client)
	})
	if err != nil {
		return nil, err
	}
	return &client, nil
}
