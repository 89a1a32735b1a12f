package scribe

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/debts"
	"github.com/chronicle-app/chronicle/internal/domain"
	"github.com/chronicle-app/chronicle/internal/ledger"
	"github.com/chronicle-app/chronicle/internal/store"
)

// Apply validates a batch of actions against current state and commits it as
// one write set. Balances are tracked in a working map while the batch is
// staged, so a deposit followed by a transfer in the same note sees the
// deposited money. Nothing is written unless every action is valid.
func Apply(ctx context.Context, st store.Store, actions []Action, defaultAccountID string, now time.Time) error {
	if len(actions) == 0 {
		return nil
	}

	accounts, err := st.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	categories, err := st.Categories(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	budgets, err := st.MonthlyBudgets(ctx)
	if err != nil {
		return fmt.Errorf("load budgets: %w", err)
	}

	b := &batch{
		now:              now,
		defaultAccountID: defaultAccountID,
		accounts:         make(map[string]domain.Account, len(accounts)),
		byName:           make(map[string]string, len(accounts)),
		dirty:            make(map[string]bool),
		categories:       make(map[string]domain.Category, len(categories)),
		months:           make(map[string]bool),
		budgets:          budgets,
	}
	for _, a := range accounts {
		b.accounts[a.ID] = a
		b.byName[domain.NormalizeName(a.Name)] = a.ID
	}
	for _, c := range categories {
		b.categories[domain.NormalizeName(c.Name)] = c
	}

	for i, act := range actions {
		var err error
		switch a := act.(type) {
		case TransactionAction:
			err = b.transaction(a)
		case AddAccountAction:
			err = b.addAccount(a)
		case UpdateAccountBalanceAction:
			err = b.updateBalance(a)
		case AddSubscriptionAction:
			err = b.addSubscription(a)
		case TransferAction:
			err = b.transfer(a)
		case AddCategoryAction:
			err = b.addCategory(a)
		case UpdateCategoryBudgetAction:
			err = b.updateBudget(a)
		case RecordHistoryPointAction:
			err = b.recordHistory(a)
		case AddPayableAction:
			err = b.addPayable(a)
		default:
			err = fmt.Errorf("unhandled action type %T", act)
		}
		if err != nil {
			return fmt.Errorf("apply action %d (%s): %w", i, act.kind(), err)
		}
	}

	for month := range b.months {
		b.lockMonth(month)
	}
	b.flushAccounts()
	if b.ws.Empty() {
		return nil
	}
	if err := st.Apply(ctx, b.ws); err != nil {
		return fmt.Errorf("commit action batch: %w", err)
	}
	return nil
}

// batch stages one action set. accounts holds working copies whose balances
// compound as actions land; dirty marks which need writing back.
type batch struct {
	now              time.Time
	defaultAccountID string

	accounts   map[string]domain.Account
	byName     map[string]string
	dirty      map[string]bool
	categories map[string]domain.Category
	months     map[string]bool
	budgets    domain.MonthlyBudgets

	ws store.WriteSet
}

// lockMonth snapshots every category's base budget into the month document
// unless the month is already locked in the store or the batch has staged a
// budget write for it. Locking must land before any per-category override so
// a retroactive base edit cannot fall through to the month's other
// categories.
func (b *batch) lockMonth(month string) {
	if _, locked := b.budgets[month]; locked {
		return
	}
	for _, op := range b.ws.Ops {
		if op.Collection == store.Budgets && op.ID == month {
			return
		}
	}
	base := make(map[string]decimal.Decimal, len(b.categories))
	for _, c := range b.categories {
		base[c.ID] = c.Budget
	}
	b.ws.Put(store.Budgets, month, base)
}

// resolveAccount accepts an account ID, an account name, or empty (meaning
// the default account). The untracked-cash sentinel resolves to no account.
func (b *batch) resolveAccount(ref string) (string, bool) {
	if ref == "" {
		ref = b.defaultAccountID
	}
	if ref == "" || ref == domain.CashOtherAccountID {
		return "", false
	}
	if _, ok := b.accounts[ref]; ok {
		return ref, true
	}
	if id, ok := b.byName[domain.NormalizeName(ref)]; ok {
		return id, true
	}
	return "", false
}

func (b *batch) credit(id string, amount decimal.Decimal, txType domain.TransactionType) {
	acct := b.accounts[id]
	acct.Balance = ledger.Apply(acct.Balance, amount, txType, acct.Type)
	b.accounts[id] = acct
	b.dirty[id] = true
}

func (b *batch) parseDate(s string) (time.Time, error) {
	if s == "" {
		return b.now, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, b.now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", s, err)
	}
	return t, nil
}

func (b *batch) transaction(a TransactionAction) error {
	txType := domain.TransactionType(a.Type)
	if !txType.Valid() {
		return fmt.Errorf("invalid transaction type %q", a.Type)
	}
	if !a.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", a.Amount)
	}
	date, err := b.parseDate(a.Date)
	if err != nil {
		return err
	}

	var splits []domain.Split
	for _, sp := range a.Splits {
		st := domain.TransactionType(sp.Type)
		if sp.Type == "" {
			st = txType
		} else if !st.Valid() {
			return fmt.Errorf("invalid split type %q", sp.Type)
		}
		splits = append(splits, domain.Split{
			Amount:   sp.Amount,
			Category: sp.Category,
			Type:     st,
			Target:   sp.Target,
			Note:     sp.Note,
		})
	}
	splits = debts.Normalize(splits)
	if err := debts.ValidateTotal(a.Amount, splits); err != nil {
		return err
	}

	tx := domain.Transaction{
		ID:          uuid.NewString(),
		Date:        date,
		Description: a.Description,
		Amount:      a.Amount,
		Type:        txType,
		Category:    a.Category,
		Tags:        a.Tags,
		Splits:      splits,
		CreatedAt:   b.now,
	}
	if id, ok := b.resolveAccount(a.Account); ok {
		tx.AccountID = id
		b.credit(id, a.Amount, txType)
	}
	b.months[tx.MonthKey()] = true
	b.ws.Put(store.Transactions, tx.ID, tx)
	return nil
}

func (b *batch) addAccount(a AddAccountAction) error {
	acctType := domain.AccountType(a.Type)
	if !acctType.Valid() {
		return fmt.Errorf("invalid account type %q", a.Type)
	}
	if a.Name == "" {
		return fmt.Errorf("account name is required")
	}
	if _, exists := b.byName[domain.NormalizeName(a.Name)]; exists {
		return fmt.Errorf("account %q already exists", a.Name)
	}

	acct := domain.Account{
		ID:      domain.SlugID(a.Name),
		Name:    a.Name,
		Type:    acctType,
		Subtype: a.Subtype,
		Balance: a.Balance,
	}
	b.accounts[acct.ID] = acct
	b.byName[domain.NormalizeName(acct.Name)] = acct.ID
	b.dirty[acct.ID] = true
	return nil
}

func (b *batch) updateBalance(a UpdateAccountBalanceAction) error {
	id, ok := b.resolveAccount(a.Account)
	if !ok {
		return fmt.Errorf("unknown account %q", a.Account)
	}
	acct := b.accounts[id]
	acct.Balance = a.Balance
	b.accounts[id] = acct
	b.dirty[id] = true
	return nil
}

func (b *batch) addSubscription(a AddSubscriptionAction) error {
	if a.DayOfMonth < 1 || a.DayOfMonth > 31 {
		return fmt.Errorf("dayOfMonth %d out of range", a.DayOfMonth)
	}
	if !a.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", a.Amount)
	}
	sub := domain.Subscription{
		ID:         uuid.NewString(),
		Name:       a.Name,
		Amount:     a.Amount,
		DayOfMonth: a.DayOfMonth,
		Category:   a.Category,
	}
	b.ws.Put(store.Subscriptions, sub.ID, sub)
	return nil
}

func (b *batch) transfer(a TransferAction) error {
	if !a.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", a.Amount)
	}
	fromID, ok := b.resolveAccount(a.From)
	if !ok {
		return fmt.Errorf("unknown source account %q", a.From)
	}
	toID, ok := b.resolveAccount(a.To)
	if !ok {
		return fmt.Errorf("unknown destination account %q", a.To)
	}
	if fromID == toID {
		return fmt.Errorf("transfer source and destination are the same account")
	}
	date, err := b.parseDate(a.Date)
	if err != nil {
		return err
	}

	from, to := b.accounts[fromID], b.accounts[toID]
	newFrom, newTo := ledger.TransferLegs(from, to, a.Amount)
	from.Balance, to.Balance = newFrom, newTo
	b.accounts[fromID], b.accounts[toID] = from, to
	b.dirty[fromID], b.dirty[toID] = true, true

	tr := domain.Transfer{
		ID:          uuid.NewString(),
		FromID:      fromID,
		ToID:        toID,
		FromName:    from.Name,
		ToName:      to.Name,
		Amount:      a.Amount,
		Date:        date,
		Description: a.Description,
		CreatedAt:   b.now,
	}
	b.ws.Put(store.Transfers, tr.ID, tr)
	return nil
}

func (b *batch) addCategory(a AddCategoryAction) error {
	if a.Name == "" {
		return fmt.Errorf("category name is required")
	}
	if _, exists := b.categories[domain.NormalizeName(a.Name)]; exists {
		return fmt.Errorf("category %q already exists", a.Name)
	}
	cat := domain.Category{
		ID:     domain.SlugID(a.Name),
		Name:   a.Name,
		Budget: a.Budget,
	}
	b.categories[domain.NormalizeName(cat.Name)] = cat
	b.ws.Put(store.Categories, cat.ID, cat)
	return nil
}

func (b *batch) updateBudget(a UpdateCategoryBudgetAction) error {
	cat, ok := b.categories[domain.NormalizeName(a.Category)]
	if !ok {
		return fmt.Errorf("unknown category %q", a.Category)
	}
	if a.Month != "" {
		if _, err := time.Parse("2006-01", a.Month); err != nil {
			return fmt.Errorf("bad month %q: %w", a.Month, err)
		}
		b.lockMonth(a.Month)
		b.ws.Put(store.Budgets, a.Month, store.BudgetValue(cat.ID, a.Budget))
		return nil
	}
	cat.Budget = a.Budget
	b.categories[domain.NormalizeName(cat.Name)] = cat
	b.ws.Put(store.Categories, cat.ID, cat)
	return nil
}

func (b *batch) recordHistory(a RecordHistoryPointAction) error {
	id, ok := b.resolveAccount(a.Account)
	if !ok {
		return fmt.Errorf("unknown account %q", a.Account)
	}
	date, err := b.parseDate(a.Date)
	if err != nil {
		return err
	}
	snap := domain.HistorySnapshot{
		ID:               uuid.NewString(),
		Date:             date,
		AccountBalances:  map[string]decimal.Decimal{id: a.Balance},
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
	}
	if b.accounts[id].Type == domain.AccountLiability {
		snap.TotalLiabilities = a.Balance
	} else {
		snap.TotalAssets = a.Balance
	}
	snap.NetWorth = snap.TotalAssets.Sub(snap.TotalLiabilities)
	b.ws.Put(store.History, snap.ID, snap)
	return nil
}

// addPayable books an unbacked debt: a zero-balance-impact transaction whose
// single open payable split carries the obligation.
func (b *batch) addPayable(a AddPayableAction) error {
	if !a.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", a.Amount)
	}
	date, err := b.parseDate(a.Date)
	if err != nil {
		return err
	}
	desc := a.Description
	if desc == "" {
		desc = fmt.Sprintf("Owed to %s", a.Target)
	}
	tx := domain.Transaction{
		ID:          uuid.NewString(),
		Date:        date,
		Description: desc,
		Amount:      a.Amount,
		Type:        domain.TypeExpense,
		Category:    domain.CategoryPayable,
		Splits: debts.Normalize([]domain.Split{{
			Amount:   a.Amount,
			Category: domain.CategoryPayable,
			Type:     domain.TypeExpense,
			Target:   a.Target,
		}}),
		CreatedAt: b.now,
	}
	b.ws.Put(store.Transactions, tx.ID, tx)
	return nil
}

// flushAccounts writes every touched account and, when balances moved,
// appends a net-worth snapshot so charts pick up the change.
func (b *batch) flushAccounts() {
	if len(b.dirty) == 0 {
		return
	}
	all := make([]domain.Account, 0, len(b.accounts))
	for _, a := range b.accounts {
		all = append(all, a)
	}
	for id := range b.dirty {
		b.ws.Put(store.Accounts, id, b.accounts[id])
	}
	snap := domain.SnapshotAccounts(all, b.now)
	snap.ID = uuid.NewString()
	b.ws.Put(store.History, snap.ID, snap)
}
