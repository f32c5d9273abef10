package sqlinline

const QUpsertGenerationHistory = `--sql 5a2e8c41-7b9f-4d36-a0e8-c4d1f62b8e07
insert into generation_history (task_id, job_id, prompt, status, url, channel, cost, refunded, config, created_at, updated_at)
values ($1::text, $2::text, $3::text, $4::text, $5::text, $6::text, $7::bigint, $8::boolean, $9::jsonb, now(), now())
on conflict (task_id) do update set
    job_id = excluded.job_id,
    status = excluded.status,
    url = excluded.url,
    cost = excluded.cost,
    refunded = excluded.refunded,
    updated_at = now();
`

const QListGenerationHistory = `--sql e07d3a96-1f42-48cb-b5d8-62c9a0f417e3
select task_id, job_id, prompt, status, url, channel, cost, refunded, config, created_at
from generation_history
order by created_at desc
limit $1::int offset $2::int;
`
