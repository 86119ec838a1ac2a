package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	entities map[EntityKind]map[int64]Entity
	txns     []Transaction
	nextID   int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entities: map[EntityKind]map[int64]Entity{
		KindCustomer: {},
		KindVendor:   {},
		KindCompany:  {},
	}}
}

func (m *memoryStore) addEntity(kind EntityKind, id int64, balance decimal.Decimal) {
	m.entities[kind][id] = Entity{ID: id, Kind: kind, CurrentBalance: balance}
}

func (m *memoryStore) GetEntityForUpdate(ctx context.Context, kind EntityKind, id int64) (Entity, error) {
	e, ok := m.entities[kind][id]
	if !ok {
		return Entity{}, ErrEntityNotFound
	}
	return e, nil
}

func (m *memoryStore) UpdateEntityBalance(ctx context.Context, kind EntityKind, id int64, balance decimal.Decimal) error {
	e, ok := m.entities[kind][id]
	if !ok {
		return ErrEntityNotFound
	}
	e.CurrentBalance = balance
	m.entities[kind][id] = e
	return nil
}

func (m *memoryStore) InsertTransaction(ctx context.Context, txn Transaction) (int64, error) {
	m.nextID++
	txn.ID = m.nextID
	m.txns = append(m.txns, txn)
	return txn.ID, nil
}

func (m *memoryStore) FindTransactionByInvoice(ctx context.Context, kind EntityKind, entityID int64, invoiceNumber string) (Transaction, error) {
	for _, t := range m.txns {
		if t.EntityKind == kind && t.EntityID == entityID && t.InvoiceNumber == invoiceNumber && t.Direction == Debit {
			return t, nil
		}
	}
	return Transaction{}, ErrTransactionNotFound
}

func (m *memoryStore) UpdateTransaction(ctx context.Context, txn Transaction) error {
	for i, t := range m.txns {
		if t.ID == txn.ID {
			m.txns[i] = txn
			return nil
		}
	}
	return ErrTransactionNotFound
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAppendSignConventions(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		kind    EntityKind
		dir     Direction
		start   string
		amount  string
		wantNew string
	}{
		{"customer debit increases", KindCustomer, Debit, "100", "25", "125"},
		{"customer credit decreases", KindCustomer, Credit, "100", "25", "75"},
		{"vendor debit increases", KindVendor, Debit, "50", "75", "125"},
		{"vendor credit decreases", KindVendor, Credit, "125", "75", "50"},
		{"company credit increases", KindCompany, Credit, "1000", "150", "1150"},
		{"company debit decreases", KindCompany, Debit, "1000", "150", "850"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemoryStore()
			store.addEntity(tc.kind, 1, dec(tc.start))
			led := New(store)

			res, err := led.Append(ctx, AppendInput{
				Kind:      tc.kind,
				EntityID:  1,
				Direction: tc.dir,
				Amount:    dec(tc.amount),
			})
			require.NoError(t, err)
			require.True(t, res.PreviousBalance.Equal(dec(tc.start)))
			require.True(t, res.NewBalance.Equal(dec(tc.wantNew)))
			require.Len(t, store.txns, 1)
			require.True(t, store.txns[0].NewBalance.Equal(dec(tc.wantNew)))
			require.True(t, store.entities[tc.kind][1].CurrentBalance.Equal(dec(tc.wantNew)))
		})
	}
}

func TestAppendVendorRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	store.addEntity(KindVendor, 7, dec("200"))
	led := New(store)

	booked, err := led.Append(ctx, AppendInput{Kind: KindVendor, EntityID: 7, Direction: Debit, Amount: dec("75"), InvoiceNumber: "INV-9"})
	require.NoError(t, err)
	require.True(t, booked.NewBalance.Equal(dec("275")))

	paid, err := led.Append(ctx, AppendInput{Kind: KindVendor, EntityID: 7, Direction: Credit, Amount: dec("75"), Reference: "PAY-1"})
	require.NoError(t, err)
	require.True(t, paid.NewBalance.Equal(dec("200")))
}

func TestAppendValidation(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	store.addEntity(KindCustomer, 1, decimal.Zero)
	led := New(store)

	_, err := led.Append(ctx, AppendInput{Kind: KindCustomer, EntityID: 1, Direction: Debit, Amount: decimal.Zero})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = led.Append(ctx, AppendInput{Kind: KindCustomer, EntityID: 1, Direction: Debit, Amount: dec("-5")})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = led.Append(ctx, AppendInput{Kind: KindCustomer, EntityID: 99, Direction: Debit, Amount: dec("5")})
	require.ErrorIs(t, err, ErrEntityNotFound)

	require.Empty(t, store.txns)
}

func TestCorrectRewritesInvoiceRow(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	store.addEntity(KindCustomer, 3, decimal.Zero)
	led := New(store)

	// Book 200 for the invoice, then unrelated activity on top.
	_, err := led.Append(ctx, AppendInput{Kind: KindCustomer, EntityID: 3, Direction: Debit, Amount: dec("200"), InvoiceNumber: "INV-42"})
	require.NoError(t, err)
	_, err = led.Append(ctx, AppendInput{Kind: KindCustomer, EntityID: 3, Direction: Debit, Amount: dec("300"), InvoiceNumber: "INV-43"})
	require.NoError(t, err)

	res, err := led.Correct(ctx, CorrectInput{
		Kind:          KindCustomer,
		EntityID:      3,
		InvoiceNumber: "INV-42",
		OldAmount:     dec("200"),
		NewAmount:     dec("250"),
	})
	require.NoError(t, err)
	require.True(t, res.PreviousBalance.Equal(dec("500")))
	require.True(t, res.NewBalance.Equal(dec("550")))

	corrected, err := store.FindTransactionByInvoice(ctx, KindCustomer, 3, "INV-42")
	require.NoError(t, err)
	require.True(t, corrected.Amount.Equal(dec("250")))
	// Row invariant survives the rewrite.
	require.True(t, corrected.NewBalance.Equal(corrected.PreviousBalance.Add(corrected.Amount)))
	// No extra audit row appended.
	require.Len(t, store.txns, 2)
}

func TestCorrectMissingRow(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	store.addEntity(KindVendor, 5, decimal.Zero)
	led := New(store)

	_, err := led.Correct(ctx, CorrectInput{
		Kind:          KindVendor,
		EntityID:      5,
		InvoiceNumber: "INV-77",
		OldAmount:     dec("10"),
		NewAmount:     dec("20"),
	})
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestCorrectIgnoresPaymentCredits(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	store.addEntity(KindCustomer, 1, decimal.Zero)
	led := New(store)

	// A payment credit carries the invoice number but is not a booking row.
	_, err := led.Append(ctx, AppendInput{Kind: KindCustomer, EntityID: 1, Direction: Credit, Amount: dec("70"), Reference: "PAY-1", InvoiceNumber: "INV-9"})
	require.NoError(t, err)

	_, err = led.Correct(ctx, CorrectInput{
		Kind:          KindCustomer,
		EntityID:      1,
		InvoiceNumber: "INV-9",
		OldAmount:     dec("100"),
		NewAmount:     dec("120"),
	})
	require.ErrorIs(t, err, ErrTransactionNotFound)

	// The payment row and the balance are untouched.
	require.Len(t, store.txns, 1)
	require.Equal(t, Credit, store.txns[0].Direction)
	require.True(t, store.txns[0].Amount.Equal(dec("70")))
	require.True(t, store.entities[KindCustomer][1].CurrentBalance.Equal(dec("-70")))
}

func TestReplayReproducesBalance(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	store.addEntity(KindCustomer, 1, decimal.Zero)
	led := New(store)

	amounts := []struct {
		dir    Direction
		amount string
	}{
		{Debit, "120.50"}, {Debit, "99.99"}, {Credit, "60"}, {Debit, "0.01"}, {Credit, "160.50"},
	}
	for _, a := range amounts {
		_, err := led.Append(ctx, AppendInput{Kind: KindCustomer, EntityID: 1, Direction: a.dir, Amount: dec(a.amount)})
		require.NoError(t, err)
	}

	replayed := decimal.Zero
	for _, txn := range store.txns {
		require.True(t, txn.PreviousBalance.Equal(replayed))
		replayed = replayed.Add(txn.Amount.Mul(signFor(txn.EntityKind, txn.Direction)))
		require.True(t, txn.NewBalance.Equal(replayed))
	}
	require.True(t, store.entities[KindCustomer][1].CurrentBalance.Equal(replayed))
	require.True(t, Replay(KindCustomer, store.txns).Equal(replayed))
}
