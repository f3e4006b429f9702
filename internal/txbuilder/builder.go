// internal/txbuilder/builder.go
package txbuilder

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

// Compute budget defaults.
const (
	DefaultUnits  uint32 = 200_000
	SnipingUnits  uint32 = 400_000
	MaxUnits      uint32 = 1_400_000
	DefaultMicros uint64 = 1_000
)

var (
	ErrNoSigners      = errors.New("no signers provided")
	ErrNoInstructions = errors.New("no instructions provided")
)

// BlockhashSource supplies the recent blockhash a transaction is built against.
type BlockhashSource interface {
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
}

// ComputeBudget is the per-transaction unit limit and priority price.
// A zero field omits the corresponding instruction.
type ComputeBudget struct {
	Units         uint32
	MicroLamports uint64
}

// Instructions returns the compute budget instructions for b.
func (b ComputeBudget) Instructions() []solana.Instruction {
	ixs := make([]solana.Instruction, 0, 2)
	if b.Units > 0 {
		ixs = append(ixs, computebudget.NewSetComputeUnitLimitInstruction(b.Units).Build())
	}
	if b.MicroLamports > 0 {
		ixs = append(ixs, computebudget.NewSetComputeUnitPriceInstruction(b.MicroLamports).Build())
	}
	return ixs
}

// PriorityFeeLamports is the lamports paid on top of the base fee when every unit is used.
func (b ComputeBudget) PriorityFeeLamports() uint64 {
	return uint64(b.Units) * b.MicroLamports / 1_000_000
}

// Builder assembles and signs a versioned transaction.
type Builder struct {
	payer        solana.PublicKey
	instructions []solana.Instruction
	signers      []solana.PrivateKey
	budget       ComputeBudget
	tables       map[solana.PublicKey]solana.PublicKeySlice
}

// NewBuilder creates a builder whose fees are paid by payer.
func NewBuilder(payer solana.PrivateKey) *Builder {
	return &Builder{
		payer:   payer.PublicKey(),
		signers: []solana.PrivateKey{payer},
		budget:  ComputeBudget{Units: DefaultUnits, MicroLamports: DefaultMicros},
	}
}

// SetComputeBudget overrides the default unit limit and price.
func (b *Builder) SetComputeBudget(budget ComputeBudget) *Builder {
	b.budget = budget
	return b
}

// AddInstructions appends instructions after the compute budget ones.
func (b *Builder) AddInstructions(ixs ...solana.Instruction) *Builder {
	b.instructions = append(b.instructions, ixs...)
	return b
}

// AddSigner adds an extra signer, e.g. a fresh mint keypair.
func (b *Builder) AddSigner(signer solana.PrivateKey) *Builder {
	for _, s := range b.signers {
		if s.PublicKey().Equals(signer.PublicKey()) {
			return b
		}
	}
	b.signers = append(b.signers, signer)
	return b
}

// WithLookupTables compiles the message against the given address lookup tables.
func (b *Builder) WithLookupTables(tables map[solana.PublicKey]solana.PublicKeySlice) *Builder {
	if len(tables) > 0 {
		b.tables = tables
	}
	return b
}

// Payer returns the fee payer.
func (b *Builder) Payer() solana.PublicKey { return b.payer }

// Build fetches a blockhash from src and returns the signed transaction.
func (b *Builder) Build(ctx context.Context, src BlockhashSource) (*solana.Transaction, error) {
	blockhash, err := src.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}
	return b.BuildWithBlockhash(blockhash)
}

// BuildWithBlockhash signs against a known blockhash. Bundles use it so every
// transaction shares one blockhash.
func (b *Builder) BuildWithBlockhash(blockhash solana.Hash) (*solana.Transaction, error) {
	if len(b.signers) == 0 {
		return nil, ErrNoSigners
	}
	if len(b.instructions) == 0 {
		return nil, ErrNoInstructions
	}

	budgetIxs := b.budget.Instructions()
	instructions := make([]solana.Instruction, 0, len(budgetIxs)+len(b.instructions))
	instructions = append(instructions, budgetIxs...)
	instructions = append(instructions, b.instructions...)

	opts := []solana.TransactionOption{solana.TransactionPayer(b.payer)}
	if b.tables != nil {
		opts = append(opts, solana.TransactionAddressTables(b.tables))
	}

	tx, err := solana.NewTransaction(instructions, blockhash, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	tx.Message.SetVersion(solana.MessageVersionV0)

	if _, err := tx.Sign(b.signerFor); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return tx, nil
}

func (b *Builder) signerFor(key solana.PublicKey) *solana.PrivateKey {
	for _, signer := range b.signers {
		if signer.PublicKey().Equals(key) {
			privateCopy := signer
			return &privateCopy
		}
	}
	return nil
}
