package command

import (
	"context"
	"errors"
	"time"

	"github.com/mojagap/moja-node/internal/repository"
	"github.com/mojagap/moja-node/shared/apperr"
	"github.com/mojagap/moja-node/shared/cqrs"
	"github.com/mojagap/moja-node/shared/events"
	"github.com/mojagap/moja-node/shared/middleware"
	"github.com/mojagap/moja-node/shared/models"
	"github.com/mojagap/moja-node/shared/utils"
	"github.com/sirupsen/logrus"
)

// TransactionMarker is satisfied by *repository.WalletReadRepository.
type TransactionMarker interface {
	IsTransactionProcessed(ctx context.Context, reference string) bool
	MarkTransactionProcessed(ctx context.Context, reference string)
}

type WalletCommandService struct {
	tx        repository.TxManager
	markers   TransactionMarker
	publisher EventPublisher
	logger    *logrus.Logger
	now       func() time.Time
}

func NewWalletCommandService(tx repository.TxManager, markers TransactionMarker, publisher EventPublisher, logger *logrus.Logger) *WalletCommandService {
	return &WalletCommandService{
		tx:        tx,
		markers:   markers,
		publisher: publisher,
		logger:    logger,
		now:       utcNow,
	}
}

// Deposit records a PENDING deposit. Balances change once the
// wallet.transaction.created event is consumed.
func (s *WalletCommandService) Deposit(ctx context.Context, cmd cqrs.DepositCommand) (*models.WalletTransaction, error) {
	if !cmd.Amount.IsPositive() {
		return nil, apperr.NewValidationError(apperr.MsgAmountMustBePositive, apperr.FieldError{
			Field: "amount", Message: apperr.MsgAmountMustBePositive, Type: "gt",
		})
	}

	var txn *models.WalletTransaction
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		now := s.now()
		actor, err := loadActor(ctx, repos, cmd.ActorID)
		if err != nil {
			return err
		}
		wallet, err := repos.Wallets().FindByID(ctx, cmd.WalletID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && wallet.AccountID != actor.AccountID) {
			return apperr.NewNotFoundError("Wallet", "ID")
		}
		if err != nil {
			return err
		}

		request := &models.WalletTransactionRequest{
			WalletID:        wallet.ID,
			TransactionType: models.TransactionTypeDeposit,
			Amount:          cmd.Amount,
			Narration:       cmd.Narration,
		}
		request.StampCreate(actor.ID, now)

		txn = &models.WalletTransaction{
			Reference:                utils.GenerateReference(),
			WalletID:                 wallet.ID,
			TransactionType:          models.TransactionTypeDeposit,
			Amount:                   cmd.Amount,
			TransactionStatus:        models.TransactionStatusPending,
			WalletTransactionRequest: request,
		}
		if cmd.BankDeposit != nil {
			deposit := &models.BankDepositTransaction{
				BankName:          cmd.BankDeposit.BankName,
				BankAccountNumber: cmd.BankDeposit.BankAccountNumber,
				DepositReference:  cmd.BankDeposit.DepositReference,
				DepositedOn:       cmd.BankDeposit.DepositedOn,
			}
			deposit.StampCreate(actor.ID, now)
			txn.BankDepositTransaction = deposit
		}
		txn.StampCreate(actor.ID, now)
		return repos.Wallets().CreateTransaction(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"wallet_id": txn.WalletID,
		"reference": txn.Reference,
		"amount":    txn.Amount.StringFixed(2),
	}).Info("Deposit recorded")
	if err := s.publisher.Publish(ctx, events.WalletEventsStream, events.WalletTransactionCreated, events.WalletTransactionCreatedEvent{
		TransactionID:   txn.ID,
		Reference:       txn.Reference,
		WalletID:        txn.WalletID,
		TransactionType: string(txn.TransactionType),
		Amount:          txn.Amount.String(),
	}); err != nil {
		s.logger.WithError(err).WithField("event", events.WalletTransactionCreated).Error("Failed to publish event")
	}
	return txn, nil
}

// HandleWalletTransactionEvent settles a pending transaction. Duplicate
// deliveries and already settled transactions are skipped, and a debit
// larger than the available balance fails the transaction instead.
func (s *WalletCommandService) HandleWalletTransactionEvent(ctx context.Context, event events.Event) error {
	if event.Type != events.WalletTransactionCreated {
		return nil
	}
	var data events.WalletTransactionCreatedEvent
	if err := events.Decode(event, &data); err != nil {
		return err
	}
	log := s.logger.WithFields(logrus.Fields{"reference": data.Reference, "wallet_id": data.WalletID})
	if s.markers.IsTransactionProcessed(ctx, data.Reference) {
		log.Info("Wallet transaction already processed, skipping duplicate event")
		return nil
	}

	var settled *models.Wallet
	var status models.TransactionStatus
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		now := s.now()
		txn, err := repos.Wallets().FindTransactionByReference(ctx, data.Reference)
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("Wallet transaction not found, dropping event")
			return nil
		}
		if err != nil {
			return err
		}
		if txn.TransactionStatus != models.TransactionStatusPending {
			return nil
		}

		wallet, err := repos.Wallets().FindByID(ctx, txn.WalletID)
		if err != nil {
			return err
		}

		var actorID uint
		if txn.CreatedByID != nil {
			actorID = *txn.CreatedByID
		}

		switch txn.TransactionType {
		case models.TransactionTypeDeposit:
			wallet.AvailableBalance = wallet.AvailableBalance.Add(txn.Amount)
			wallet.ActualBalance = wallet.ActualBalance.Add(txn.Amount)
			txn.TransactionStatus = models.TransactionStatusSuccess
		case models.TransactionTypeWithdraw, models.TransactionTypeCharge:
			if wallet.AvailableBalance.LessThan(txn.Amount) || wallet.ActualBalance.LessThan(txn.Amount) {
				txn.TransactionStatus = models.TransactionStatusFailed
				break
			}
			wallet.AvailableBalance = wallet.AvailableBalance.Sub(txn.Amount)
			wallet.ActualBalance = wallet.ActualBalance.Sub(txn.Amount)
			txn.TransactionStatus = models.TransactionStatusSuccess
		default:
			log.WithField("transaction_type", txn.TransactionType).Warn("Wallet transaction type is not settled by this consumer")
			return nil
		}

		txn.StampModify(actorID, now)
		if err := repos.Wallets().SaveTransaction(ctx, txn); err != nil {
			return err
		}
		status = txn.TransactionStatus
		if status != models.TransactionStatusSuccess {
			return nil
		}
		wallet.StampModify(actorID, now)
		if err := repos.Wallets().Save(ctx, wallet); err != nil {
			return err
		}
		settled = wallet
		return nil
	})
	if err != nil {
		return err
	}

	s.markers.MarkTransactionProcessed(ctx, data.Reference)
	if status != "" {
		log.WithField("status", status).Info("Wallet transaction settled")
	}
	if settled == nil {
		return nil
	}
	if err := s.publisher.Publish(ctx, events.WalletEventsStream, events.WalletBalanceUpdated, events.WalletBalanceUpdatedEvent{
		WalletID:         settled.ID,
		Reference:        data.Reference,
		AvailableBalance: settled.AvailableBalance.StringFixed(2),
		ActualBalance:    settled.ActualBalance.StringFixed(2),
	}); err != nil {
		log.WithError(err).Error("Failed to publish wallet.balance.updated event")
	}
	return nil
}

// ApplyWalletCharges attaches charges to the listed wallets, or to every
// wallet of the caller's account when ApplyToAll is set.
func (s *WalletCommandService) ApplyWalletCharges(ctx context.Context, cmd cqrs.ApplyWalletChargeCommand) ([]uint, error) {
	if err := middleware.Validate(cmd); err != nil {
		return nil, err
	}
	if !cmd.ApplyToAll && len(cmd.WalletIDs) == 0 {
		return nil, apperr.NewValidationError(apperr.MsgWalletIDsRequired)
	}

	var updated []uint
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		now := s.now()
		actor, err := loadActor(ctx, repos, cmd.ActorID)
		if err != nil {
			return err
		}

		chargeIDs := uniqueIDs(cmd.WalletChargeIDs)
		charges, err := repos.Wallets().FindChargesByIDs(ctx, chargeIDs)
		if err != nil {
			return err
		}
		if len(charges) != len(chargeIDs) {
			return apperr.NewNotFoundError("Wallet charge", "ID")
		}

		var wallets []models.Wallet
		if cmd.ApplyToAll {
			wallets, err = repos.Wallets().ListByAccount(ctx, actor.AccountID)
		} else {
			walletIDs := uniqueIDs(cmd.WalletIDs)
			wallets, err = repos.Wallets().FindByIDs(ctx, walletIDs)
			if err == nil && len(wallets) != len(walletIDs) {
				return apperr.NewNotFoundError("Wallet", "ID")
			}
		}
		if err != nil {
			return err
		}

		for i := range wallets {
			if wallets[i].AccountID != actor.AccountID {
				return apperr.NewAuthorizationError(apperr.MsgNotPermittedOnWallet)
			}
		}
		for i := range wallets {
			if err := repos.Wallets().AppendCharges(ctx, &wallets[i], charges); err != nil {
				return err
			}
			wallets[i].StampModify(actor.ID, now)
			if err := repos.Wallets().Save(ctx, &wallets[i]); err != nil {
				return err
			}
			updated = append(updated, wallets[i].ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"wallets": len(updated), "charges": len(cmd.WalletChargeIDs)}).Info("Wallet charges applied")
	return updated, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
