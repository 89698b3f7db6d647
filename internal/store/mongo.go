package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oseayemenre/bookshelf/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const booksCollection = "books"

type bookDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Author      string             `bson:"author"`
	Description string             `bson:"description,omitempty"`
	Genre       string             `bson:"genre,omitempty"`
	CoverKind   string             `bson:"coverKind,omitempty"`
	CoverValue  string             `bson:"coverImage,omitempty"`
	Rating      *float64           `bson:"rating,omitempty"`
	IsRead      bool               `bson:"isRead"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *bookDocument) toBook() *models.Book {
	book := &models.Book{
		Id:          d.ID.Hex(),
		Title:       d.Title,
		Author:      d.Author,
		Description: d.Description,
		Genre:       d.Genre,
		Rating:      d.Rating,
		IsRead:      d.IsRead,
		Created_at:  d.CreatedAt,
		Updated_at:  d.UpdatedAt,
	}

	if d.CoverValue != "" {
		cover := models.CoverImage{Kind: models.CoverKind(d.CoverKind), Value: d.CoverValue}
		// older documents hold a bare string
		if cover.Kind == "" {
			if parsed, err := models.ParseCover(d.CoverValue); err == nil {
				cover = parsed
			}
		}
		book.CoverImage = &cover
	}

	return book
}

// MongoStore keeps one document per book. Ids are ObjectID hex strings.
type MongoStore struct {
	client *mongo.Client
	books  *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri string, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongo: %v", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging mongo: %v", err)
	}

	return &MongoStore{
		client: client,
		books:  client.Database(database).Collection(booksCollection),
	}, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func parseObjectId(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidBookId
	}
	return oid, nil
}

func (s *MongoStore) GetBooks(ctx context.Context) ([]models.Book, error) {
	cursor, err := s.books.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("error getting books: %v", err)
	}
	defer cursor.Close(ctx)

	books := []models.Book{}

	for cursor.Next(ctx) {
		var doc bookDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("error decoding book: %v", err)
		}
		books = append(books, *doc.toBook())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %v", err)
	}

	return books, nil
}

func (s *MongoStore) CreateBook(ctx context.Context, draft *models.BookDraft) (*models.Book, error) {
	oid := primitive.NewObjectID()
	book := draft.NewBook(oid.Hex(), time.Now().UTC().Truncate(time.Millisecond))

	doc := bookDocument{
		ID:          oid,
		Title:       book.Title,
		Author:      book.Author,
		Description: book.Description,
		Genre:       book.Genre,
		Rating:      book.Rating,
		IsRead:      book.IsRead,
		CreatedAt:   book.Created_at,
		UpdatedAt:   book.Updated_at,
	}

	if book.CoverImage != nil {
		doc.CoverKind = string(book.CoverImage.Kind)
		doc.CoverValue = book.CoverImage.Value
	}

	if _, err := s.books.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("error inserting book: %v", err)
	}

	return book, nil
}

func (s *MongoStore) GetBook(ctx context.Context, id string) (*models.Book, error) {
	oid, err := parseObjectId(id)
	if err != nil {
		return nil, err
	}

	var doc bookDocument
	if err := s.books.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("error getting book: %v", err)
	}

	return doc.toBook(), nil
}

func (s *MongoStore) UpdateBook(ctx context.Context, id string, patch *models.BookPatch) (*models.Book, error) {
	oid, err := parseObjectId(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": time.Now().UTC().Truncate(time.Millisecond)}
	unset := bson.M{}

	setOrUnset := func(field string, value string) {
		if value == "" {
			unset[field] = ""
			return
		}
		set[field] = value
	}

	if patch.Title != nil {
		set["title"] = *patch.Title
	}

	if patch.Author != nil {
		set["author"] = *patch.Author
	}

	if patch.Description != nil {
		setOrUnset("description", *patch.Description)
	}

	if patch.Genre != nil {
		setOrUnset("genre", *patch.Genre)
	}

	if patch.CoverImage != nil {
		setOrUnset("coverKind", string(patch.CoverImage.Kind))
		setOrUnset("coverImage", patch.CoverImage.Value)
	}

	if patch.Rating != nil {
		set["rating"] = *patch.Rating
	}

	if patch.IsRead != nil {
		set["isRead"] = *patch.IsRead
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var doc bookDocument
	err = s.books.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("error updating book: %v", err)
	}

	return doc.toBook(), nil
}

func (s *MongoStore) UpdateBookCover(ctx context.Context, id string, cover *models.CoverImage) error {
	oid, err := parseObjectId(id)
	if err != nil {
		return err
	}

	update := bson.M{"$unset": bson.M{"coverKind": "", "coverImage": ""}}
	if cover != nil && !cover.IsZero() {
		update = bson.M{"$set": bson.M{"coverKind": string(cover.Kind), "coverImage": cover.Value}}
	}

	res, err := s.books.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("error updating book cover: %v", err)
	}

	if res.MatchedCount == 0 {
		return ErrBookNotFound
	}

	return nil
}

func (s *MongoStore) DeleteBook(ctx context.Context, id string) error {
	oid, err := parseObjectId(id)
	if err != nil {
		return err
	}

	res, err := s.books.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("error deleting book: %v", err)
	}

	if res.DeletedCount == 0 {
		return ErrBookNotFound
	}

	return nil
}
