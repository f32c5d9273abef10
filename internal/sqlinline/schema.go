package sqlinline

const QCreateCreditBalances = `--sql 1d8f4c72-a36e-49b1-8f05-7e2d9c4a61b8
create table if not exists credit_balances (
    user_id text primary key,
    balance bigint not null default 0,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`

const QCreateCreditEntries = `--sql 9b5e2d18-4c7a-4f60-a3d9-81f6c25e07b4
create table if not exists credit_entries (
    id uuid primary key,
    user_id text not null,
    task_id text not null,
    reason text not null,
    amount bigint not null,
    balance_after bigint not null,
    created_at timestamptz not null default now()
);
`

const QCreateGenerationHistory = `--sql 4e9a7f30-85d2-4b1c-9e67-f03b8d52c1a9
create table if not exists generation_history (
    task_id text primary key,
    job_id text not null default '',
    prompt text not null,
    status text not null,
    url text not null default '',
    channel text not null,
    cost bigint not null default 0,
    refunded boolean not null default false,
    config jsonb not null default '{}'::jsonb,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`

const QCreateIntegrationTokens = `--sql b2c6e851-3d94-4a7f-8e20-5f1a9c73d6e4
create table if not exists integration_tokens (
    id uuid primary key default gen_random_uuid(),
    provider text not null unique,
    token text not null,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`

// Schema lists the bootstrap statements in dependency order. Every table is
// create-if-missing so a redeploy against an existing database is a no-op.
var Schema = []string{
	QCreateCreditBalances,
	QCreateCreditEntries,
	QCreateGenerationHistory,
	QCreateIntegrationTokens,
}
