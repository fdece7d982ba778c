package core

// CategoryAmount is a total aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// TrendPoint is the total spent on one day.
type TrendPoint struct {
	Date   Date  `json:"date"`
	Amount Money `json:"amount"`
}

// BudgetStatus compares the active budget with what has been spent.
type BudgetStatus struct {
	Budget      Money   `json:"budget"`
	Spent       Money   `json:"spent"`
	Remaining   Money   `json:"remaining"`
	PercentUsed float64 `json:"percentUsed"`
	OverBudget  bool    `json:"overBudget"`
}

// GoalView is a savings goal with its completion percentage.
type GoalView struct {
	SavingsGoal
	Progress float64 `json:"progress"`
}
