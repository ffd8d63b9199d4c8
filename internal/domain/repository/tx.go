package repository

// TxRepos repositorios atados a una misma transacción de BD.
// Todo lo que se escribe a través de ellos se confirma o se descarta en bloque.
type TxRepos struct {
	Inventory InventoryRecordRepository
	Movements StockMovementRepository
	Products  ProductRepository
	Orders    OrderRepository
}
