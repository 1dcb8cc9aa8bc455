package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	fig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/KaitoHasei/zola-backend/config"
	"github.com/KaitoHasei/zola-backend/models"
)

const MaxUploadSize = 32 << 20 // matches the router's multipart memory cap

// MediaService pushes conversation media to S3 and hands back the object
// URLs; the messaging core only ever stores the resulting strings.
type MediaService interface {
	UploadConversationImage(fileHeader *multipart.FileHeader, conversationID uuid.UUID, userID string) (string, error)
	UploadGroupAvatar(fileHeader *multipart.FileHeader, conversationID uuid.UUID) (string, error)
	UploadConversationFile(fileHeader *multipart.FileHeader, conversationID uuid.UUID) (string, string, error)
}

type mediaService struct {
	Config *config.Config
}

func NewMediaService(conf *config.Config) MediaService {
	return &mediaService{Config: conf}
}

// UploadConversationImage stores the image and a 200px-wide thumbnail
// variant under the conversation's prefix and returns the full-size URL.
func (s *mediaService) UploadConversationImage(fileHeader *multipart.FileHeader, conversationID uuid.UUID, userID string) (string, error) {
	if fileHeader == nil || fileHeader.Size == 0 {
		return "", errors.New("empty image upload")
	}
	if fileHeader.Size > MaxUploadSize {
		return "", errors.New("image exceeds the maximum allowed size")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", errors.Wrap(err, "failed to open image")
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return "", errors.Wrap(err, "failed to decode image")
	}

	key := fmt.Sprintf("conversations/%s/%s-%d", conversationID, userID, time.Now().UnixNano())

	var full bytes.Buffer
	if err := jpeg.Encode(&full, img, nil); err != nil {
		return "", errors.Wrap(err, "failed to encode image")
	}
	fullURL, err := s.putObject(key, full.Bytes(), "image/jpeg")
	if err != nil {
		return "", err
	}

	thumbnail := resize.Resize(200, 0, img, resize.Lanczos3)
	var thumb bytes.Buffer
	if err := jpeg.Encode(&thumb, thumbnail, nil); err != nil {
		return "", errors.Wrap(err, "failed to encode thumbnail")
	}
	if _, err := s.putObject(key+"-thumb", thumb.Bytes(), "image/jpeg"); err != nil {
		// the thumbnail is a convenience variant; keep the message send alive
		log.Printf("thumbnail upload failed: %v", err)
	}

	return fullURL, nil
}

// UploadGroupAvatar square-crops the avatar before upload so clients get a
// uniform group image.
func (s *mediaService) UploadGroupAvatar(fileHeader *multipart.FileHeader, conversationID uuid.UUID) (string, error) {
	if fileHeader == nil || fileHeader.Size == 0 {
		return "", errors.New("empty avatar upload")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", errors.Wrap(err, "failed to open avatar")
	}
	defer file.Close()

	img, err := imaging.Decode(file)
	if err != nil {
		return "", errors.Wrap(err, "failed to decode avatar")
	}
	avatar := imaging.Fill(img, 256, 256, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, avatar, nil); err != nil {
		return "", errors.Wrap(err, "failed to encode avatar")
	}

	key := fmt.Sprintf("conversations/%s/avatars/avatarGroup-%d", conversationID, time.Now().UnixMilli())
	return s.putObject(key, buf.Bytes(), "image/jpeg")
}

// UploadConversationFile uploads an arbitrary attachment and reports the
// message type to record: VIDEO for video MIME types, FILE otherwise.
func (s *mediaService) UploadConversationFile(fileHeader *multipart.FileHeader, conversationID uuid.UUID) (string, string, error) {
	if fileHeader == nil || fileHeader.Size == 0 {
		return "", "", errors.New("empty file upload")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", "", errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(file); err != nil {
		return "", "", errors.Wrap(err, "failed to read file")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	typeMessage := models.MessageTypeFile
	if strings.HasPrefix(contentType, "video/") {
		typeMessage = models.MessageTypeVideo
	}

	key := fmt.Sprintf("conversations/%s/files/%d-%s", conversationID, time.Now().UnixMilli(), filepath.Base(fileHeader.Filename))
	url, err := s.putObject(key, buf.Bytes(), contentType)
	if err != nil {
		return "", "", err
	}
	return url, typeMessage, nil
}

func (s *mediaService) putObject(key string, body []byte, contentType string) (string, error) {
	cfg, err := fig.LoadDefaultConfig(context.TODO(),
		fig.WithRegion(s.Config.AwsRegion),
		fig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.Config.AwsAccessKeyID, s.Config.AwsSecretAccessKey, "")),
	)
	if err != nil {
		return "", errors.Wrap(err, "failed to load aws config")
	}

	svc := s3.NewFromConfig(cfg)
	_, err = svc.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(s.Config.AwsS3BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to upload to s3")
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.Config.AwsS3BucketName, s.Config.AwsRegion, key), nil
}
