package sqlinline

const QEnsureCreditBalance = `--sql 3f1c2b44-9d6a-4e0f-b2c7-51a9e8d0f632
insert into credit_balances (user_id, balance, created_at, updated_at)
values ($1::text, $2::bigint, now(), now())
on conflict (user_id) do nothing;
`

const QSelectCreditBalance = `--sql 7be4a913-2c55-4d8e-9f01-d3b6c47a82e5
select balance
from credit_balances
where user_id = $1::text;
`

// QApplyCreditDelta moves the balance and records the audit entry in one
// statement. A debit that would drive the balance negative updates nothing,
// so the insert selects zero rows and the caller sees ErrNoRows.
const QApplyCreditDelta = `--sql c91d5f27-6e38-4b0a-8d42-f15a7c3e96b0
with moved as (
    update credit_balances
    set balance = balance + $2::bigint, updated_at = now()
    where user_id = $1::text and balance + $2::bigint >= 0
    returning balance
)
insert into credit_entries (id, user_id, task_id, reason, amount, balance_after, created_at)
select gen_random_uuid(), $1::text, $3::text, $4::text, $2::bigint, moved.balance, now()
from moved
returning balance_after;
`
