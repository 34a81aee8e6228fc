// Package graph holds the category forest and the questions attached to it.
//
// Every mutation follows the same sequence: validate against the in-memory
// copy, build a storage.Batch, commit it, and only then apply the change to
// memory. A failed commit leaves the graph exactly as it was.
package graph

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hightemp/topic-trainer-ai/internal/algorithm"
	"github.com/hightemp/topic-trainer-ai/internal/models"
	"github.com/hightemp/topic-trainer-ai/internal/storage"
)

// MaxNameLength bounds category names.
const MaxNameLength = 200

type Graph struct {
	mu    sync.RWMutex
	store storage.Store
	log   *slog.Logger
	now   func() time.Time
	newID func() string

	categories map[string]models.Category
	catOrder   []string
	questions  map[string]models.Question
	qOrder     []string

	tree      []*models.CategoryNode
	treeValid bool
}

// RemovalPlan lists everything RemoveCategory would delete.
type RemovalPlan struct {
	CategoryIDs []string `json:"category_ids"`
	QuestionIDs []string `json:"question_ids"`
}

// Load reads all categories and questions from store.
func Load(ctx context.Context, store storage.Store, logger *slog.Logger) (*Graph, error) {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Graph{
		store:      store,
		log:        logger.With("component", "graph"),
		now:        time.Now,
		newID:      uuid.NewString,
		categories: make(map[string]models.Category),
		questions:  make(map[string]models.Question),
	}

	cats, err := store.LoadCategories(ctx)
	if err != nil {
		return nil, &models.StorageError{Op: "load categories", Err: err}
	}
	for _, c := range cats {
		g.categories[c.ID] = c
		g.catOrder = append(g.catOrder, c.ID)
	}

	qs, err := store.LoadQuestions(ctx)
	if err != nil {
		return nil, &models.StorageError{Op: "load questions", Err: err}
	}
	dangling := 0
	for _, q := range qs {
		if _, ok := g.categories[q.CategoryID]; !ok {
			dangling++
		}
		g.questions[q.ID] = q
		g.qOrder = append(g.qOrder, q.ID)
	}
	if dangling > 0 {
		g.log.Warn("questions reference missing categories", "count", dangling)
	}
	g.log.Debug("graph loaded", "categories", len(cats), "questions", len(qs))
	return g, nil
}

func (g *Graph) commit(ctx context.Context, op string, b storage.Batch) error {
	if err := g.store.Apply(ctx, b); err != nil {
		g.log.Error("commit failed", "op", op, "error", err)
		return &models.StorageError{Op: op, Err: err}
	}
	return nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &models.ValidationError{Field: "name", Message: "must not be empty"}
	}
	if len(name) > MaxNameLength {
		return "", &models.ValidationError{Field: "name", Message: "is too long"}
	}
	return name, nil
}

// ---- categories ----

// AddCategory creates a category under parentID, or a root when parentID is empty.
func (g *Graph) AddCategory(ctx context.Context, name, parentID string) (models.Category, error) {
	name, err := validateName(name)
	if err != nil {
		return models.Category{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if parentID != "" {
		if _, ok := g.categories[parentID]; !ok {
			return models.Category{}, &models.NotFoundError{Kind: "category", ID: parentID}
		}
	}
	c := models.Category{ID: g.newID(), Name: name, ParentID: parentID, CreatedAt: g.now()}
	if err := g.commit(ctx, "add category", storage.Batch{PutCategories: []models.Category{c}}); err != nil {
		return models.Category{}, err
	}

	g.categories[c.ID] = c
	g.catOrder = append(g.catOrder, c.ID)
	g.treeValid = false
	g.log.Info("category added", "id", c.ID, "name", c.Name, "parent_id", parentID)
	return c, nil
}

func (g *Graph) RenameCategory(ctx context.Context, id, name string) (models.Category, error) {
	return g.UpdateCategory(ctx, id, &name, nil)
}

// MoveCategory reparents id under newParentID; an empty newParentID makes it
// a root. Moving a category under itself or one of its descendants fails with
// a CycleError.
func (g *Graph) MoveCategory(ctx context.Context, id, newParentID string) (models.Category, error) {
	return g.UpdateCategory(ctx, id, nil, &newParentID)
}

// UpdateCategory renames and/or reparents a category in one write. Nil
// arguments are left unchanged.
func (g *Graph) UpdateCategory(ctx context.Context, id string, name, parentID *string) (models.Category, error) {
	var newName string
	if name != nil {
		n, err := validateName(*name)
		if err != nil {
			return models.Category{}, err
		}
		newName = n
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.categories[id]
	if !ok {
		return models.Category{}, &models.NotFoundError{Kind: "category", ID: id}
	}
	updated := c
	if name != nil {
		updated.Name = newName
	}
	if parentID != nil {
		if err := g.checkParent(id, *parentID); err != nil {
			return models.Category{}, err
		}
		updated.ParentID = *parentID
	}
	if updated == c {
		return c, nil
	}

	if err := g.commit(ctx, "update category", storage.Batch{PutCategories: []models.Category{updated}}); err != nil {
		return models.Category{}, err
	}

	g.categories[id] = updated
	g.treeValid = false
	g.log.Info("category updated", "id", id, "name", updated.Name, "parent_id", updated.ParentID)
	return updated, nil
}

// checkParent rejects a parent that is missing, is id itself, or sits below id.
func (g *Graph) checkParent(id, parentID string) error {
	if parentID == "" {
		return nil
	}
	if _, ok := g.categories[parentID]; !ok {
		return &models.NotFoundError{Kind: "category", ID: parentID}
	}
	if parentID == id {
		return &models.CycleError{ID: id, ParentID: parentID}
	}
	for _, d := range g.descendants(id) {
		if d == parentID {
			return &models.CycleError{ID: id, ParentID: parentID}
		}
	}
	return nil
}

// RemovalPlan reports what RemoveCategory(id) would delete without changing anything.
func (g *Graph) RemovalPlan(id string) (RemovalPlan, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.removalPlan(id)
}

func (g *Graph) removalPlan(id string) (RemovalPlan, error) {
	if _, ok := g.categories[id]; !ok {
		return RemovalPlan{}, &models.NotFoundError{Kind: "category", ID: id}
	}
	plan := RemovalPlan{CategoryIDs: append([]string{id}, g.descendants(id)...)}
	in := make(map[string]struct{}, len(plan.CategoryIDs))
	for _, cid := range plan.CategoryIDs {
		in[cid] = struct{}{}
	}
	for _, qid := range g.qOrder {
		if _, ok := in[g.questions[qid].CategoryID]; ok {
			plan.QuestionIDs = append(plan.QuestionIDs, qid)
		}
	}
	return plan, nil
}

// RemoveCategory deletes the category, its whole subtree and every question
// attached to any of them in a single batch.
func (g *Graph) RemoveCategory(ctx context.Context, id string) (RemovalPlan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	plan, err := g.removalPlan(id)
	if err != nil {
		return RemovalPlan{}, err
	}
	b := storage.Batch{DeleteCategories: plan.CategoryIDs, DeleteQuestions: plan.QuestionIDs}
	if err := g.commit(ctx, "remove category", b); err != nil {
		return RemovalPlan{}, err
	}

	for _, cid := range plan.CategoryIDs {
		delete(g.categories, cid)
	}
	for _, qid := range plan.QuestionIDs {
		delete(g.questions, qid)
	}
	g.catOrder = without(g.catOrder, plan.CategoryIDs)
	g.qOrder = without(g.qOrder, plan.QuestionIDs)
	g.treeValid = false
	g.log.Info("category removed", "id", id,
		"categories", len(plan.CategoryIDs), "questions", len(plan.QuestionIDs))
	return plan, nil
}

// ---- questions ----

// AddQuestion stores a new question with fresh scheduling state. An empty ID
// is assigned.
func (g *Graph) AddQuestion(ctx context.Context, q models.Question) (models.Question, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	q = q.Clone()
	if q.ID == "" {
		q.ID = g.newID()
	} else if _, exists := g.questions[q.ID]; exists {
		return models.Question{}, &models.ValidationError{Field: "id", Message: "question " + q.ID + " already exists"}
	}
	now := g.now()
	q.CreatedAt = now
	q.LastReviewed = nil
	q = algorithm.InitQuestion(q, now)
	if err := g.checkQuestion(&q); err != nil {
		return models.Question{}, err
	}
	if err := g.commit(ctx, "add question", storage.Batch{PutQuestions: []models.Question{q}}); err != nil {
		return models.Question{}, err
	}

	g.questions[q.ID] = q
	g.qOrder = append(g.qOrder, q.ID)
	g.log.Info("question added", "id", q.ID, "category_id", q.CategoryID)
	return q.Clone(), nil
}

// UpdateQuestion replaces a stored question. CreatedAt is kept from the
// stored copy.
func (g *Graph) UpdateQuestion(ctx context.Context, q models.Question) (models.Question, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	old, ok := g.questions[q.ID]
	if !ok {
		return models.Question{}, &models.NotFoundError{Kind: "question", ID: q.ID}
	}
	q = q.Clone()
	q.CreatedAt = old.CreatedAt
	if err := g.checkQuestion(&q); err != nil {
		return models.Question{}, err
	}
	if err := g.commit(ctx, "update question", storage.Batch{PutQuestions: []models.Question{q}}); err != nil {
		return models.Question{}, err
	}

	g.questions[q.ID] = q
	g.log.Debug("question updated", "id", q.ID, "interval", q.Interval, "ease_factor", q.EaseFactor)
	return q.Clone(), nil
}

func (g *Graph) RemoveQuestion(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.questions[id]; !ok {
		return &models.NotFoundError{Kind: "question", ID: id}
	}
	if err := g.commit(ctx, "remove question", storage.Batch{DeleteQuestions: []string{id}}); err != nil {
		return err
	}

	delete(g.questions, id)
	g.qOrder = without(g.qOrder, []string{id})
	g.log.Info("question removed", "id", id)
	return nil
}

// CheckQuestion reports the error UpdateQuestion would return for q without
// writing anything. Storage failures are not covered.
func (g *Graph) CheckQuestion(q models.Question) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.questions[q.ID]; !ok {
		return &models.NotFoundError{Kind: "question", ID: q.ID}
	}
	return g.checkQuestion(&q)
}

func (g *Graph) checkQuestion(q *models.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if _, ok := g.categories[q.CategoryID]; !ok {
		return &models.NotFoundError{Kind: "category", ID: q.CategoryID}
	}
	return nil
}

// ---- reads ----

func (g *Graph) Category(id string) (models.Category, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.categories[id]
	if !ok {
		return models.Category{}, &models.NotFoundError{Kind: "category", ID: id}
	}
	return c, nil
}

func (g *Graph) Question(id string) (models.Question, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	q, ok := g.questions[id]
	if !ok {
		return models.Question{}, &models.NotFoundError{Kind: "question", ID: id}
	}
	return q.Clone(), nil
}

// Categories returns all categories in insertion order.
func (g *Graph) Categories() []models.Category {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]models.Category, 0, len(g.catOrder))
	for _, id := range g.catOrder {
		out = append(out, g.categories[id])
	}
	return out
}

// Questions returns all questions in insertion order.
func (g *Graph) Questions() []models.Question {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]models.Question, 0, len(g.qOrder))
	for _, id := range g.qOrder {
		out = append(out, g.questions[id].Clone())
	}
	return out
}

// QuestionsIn returns the questions attached directly to categoryID.
func (g *Graph) QuestionsIn(categoryID string) ([]models.Question, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.categories[categoryID]; !ok {
		return nil, &models.NotFoundError{Kind: "category", ID: categoryID}
	}
	var out []models.Question
	for _, id := range g.qOrder {
		if q := g.questions[id]; q.CategoryID == categoryID {
			out = append(out, q.Clone())
		}
	}
	return out, nil
}

// Descendants returns the ids of every category below id, breadth first.
func (g *Graph) Descendants(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.categories[id]; !ok {
		return nil, &models.NotFoundError{Kind: "category", ID: id}
	}
	return g.descendants(id), nil
}

func (g *Graph) descendants(id string) []string {
	children := g.childIndex()
	visited := map[string]struct{}{id: {}}
	var out []string
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			if _, seen := visited[child]; seen {
				continue
			}
			visited[child] = struct{}{}
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// childIndex maps a parent id to its children in insertion order.
func (g *Graph) childIndex() map[string][]string {
	children := make(map[string][]string, len(g.categories))
	for _, id := range g.catOrder {
		p := g.categories[id].ParentID
		children[p] = append(children[p], id)
	}
	return children
}

func without(ids, drop []string) []string {
	if len(drop) == 0 {
		return ids
	}
	skip := make(map[string]struct{}, len(drop))
	for _, id := range drop {
		skip[id] = struct{}{}
	}
	out := ids[:0]
	for _, id := range ids {
		if _, ok := skip[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
