package memimg

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Cache 把标签图片保存在内存里，绘图时按方块尺寸缩放并缓存
type Cache struct {
	mu     sync.RWMutex
	images map[string]image.Image
	scaled map[string]image.Image
	logger *zap.Logger
}

func New(logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		images: make(map[string]image.Image),
		scaled: make(map[string]image.Image),
		logger: logger,
	}
}

func isImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// Load 读入目录下所有图片
func (c *Cache) Load(directory string) error {
	return filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isImage(path) {
			return nil
		}
		img, err := LoadImage(path)
		if err != nil {
			return err
		}
		c.Put(filepath.Base(path), img)
		return nil
	})
}

func LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load image %s: %w", path, err)
	}
	return img, nil
}

// Put 替换一张图片并清掉它的缩放缓存
func (c *Cache) Put(name string, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images[name] = img
	c.dropScaled(name)
}

func (c *Cache) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.images, name)
	c.dropScaled(name)
}

// dropScaled 需要持有写锁
func (c *Cache) dropScaled(name string) {
	for key := range c.scaled {
		if strings.HasPrefix(key, name+"@") {
			delete(c.scaled, key)
		}
	}
}

func (c *Cache) Get(name string) (image.Image, bool) {
	c.mu.RLock()
	img, exists := c.images[name]
	c.mu.RUnlock()
	return img, exists
}

// Scaled 返回缩放到不超过 w×h 的图片，保持比例
func (c *Cache) Scaled(name string, w, h int) (image.Image, bool) {
	if w <= 0 || h <= 0 {
		return nil, false
	}
	key := fmt.Sprintf("%s@%dx%d", name, w, h)

	c.mu.RLock()
	img, ok := c.scaled[key]
	src, exists := c.images[name]
	c.mu.RUnlock()
	if ok {
		return img, true
	}
	if !exists {
		return nil, false
	}

	img = imaging.Fit(src, w, h, imaging.Lanczos)
	c.mu.Lock()
	c.scaled[key] = img
	c.mu.Unlock()
	return img, true
}

// Names lists cached image names in order.
func (c *Cache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.images))
	for name := range c.images {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Watch 监听目录，图片新增或修改时热更新到内存，删除时移除，直到 ctx 结束
func (c *Cache) Watch(ctx context.Context, directory string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(directory); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			c.handle(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("watch error", zap.String("dir", directory), zap.Error(err))
		}
	}
}

func (c *Cache) handle(event fsnotify.Event) {
	if !isImage(event.Name) {
		return
	}
	name := filepath.Base(event.Name)
	switch {
	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		img, err := LoadImage(event.Name)
		if err != nil {
			// 文件可能还没写完，等下一次写事件
			c.logger.Debug("reload skipped", zap.String("file", name), zap.Error(err))
			return
		}
		c.Put(name, img)
		c.logger.Info("label reloaded", zap.String("file", name))
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		c.Remove(name)
		c.logger.Info("label removed", zap.String("file", name))
	}
}
