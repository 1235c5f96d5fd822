package pgdb

import (
	"context"

	"github.com/DRSN-tech/visual-commerce/internal/usecase"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// Порядок колонок совпадает с полями usecase.ProductInfo.
const productInfoSelect = `
	SELECT pr.id, pr.name, cat.name, pr.price, pr.image_url
	FROM products pr
	JOIN categories cat ON cat.id = pr.category_id
`

// ProductRepo читает карточки товаров каталога. Архивные товары не отдаются.
type ProductRepo struct {
	pool *pgxpool.Pool
}

func NewProductRepo(pool *pgxpool.Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

// GetProductsInfo возвращает карточки по id. Несуществующие id пропускаются, порядок не гарантирован.
func (p *ProductRepo) GetProductsInfo(ctx context.Context, ids []int64) ([]usecase.ProductInfo, error) {
	if len(ids) == 0 {
		return []usecase.ProductInfo{}, nil
	}

	return p.query(ctx, productInfoSelect+`WHERE pr.id = ANY($1) AND NOT pr.is_archived`, ids)
}

// SearchByName — регистронезависимый поиск подстроки в названии, по алфавиту.
func (p *ProductRepo) SearchByName(ctx context.Context, keyword string, limit int) ([]usecase.ProductInfo, error) {
	return p.query(ctx, productInfoSelect+`
		WHERE pr.name ILIKE '%' || $1 || '%' ESCAPE '\' AND NOT pr.is_archived
		ORDER BY pr.name, pr.id
		LIMIT $2`, escapeLike(keyword), limit)
}

func (p *ProductRepo) query(ctx context.Context, sql string, args ...any) ([]usecase.ProductInfo, error) {
	rows, err := conn(ctx, p.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	products, err := pgx.CollectRows(rows, pgx.RowToStructByPos[usecase.ProductInfo])
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if products == nil {
		products = []usecase.ProductInfo{}
	}

	return products, nil
}
